package integrationapp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
	"github.com/commercehub/backend/internal/infrastructure/oauthstate"
)

// ConnectService orchestrates the OAuth connect lifecycle: initiating the
// redirect, completing the callback, refreshing tokens and disconnecting.
type ConnectService struct {
	registry    integration.ProviderRegistry
	codec       *oauthstate.Codec
	cipher      *crypto.TokenCipher
	credentials integration.CredentialRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewConnectService creates a new ConnectService
func NewConnectService(
	registry integration.ProviderRegistry,
	codec *oauthstate.Codec,
	cipher *crypto.TokenCipher,
	credentials integration.CredentialRepository,
	logger *zap.Logger,
) *ConnectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectService{
		registry:    registry,
		codec:       codec,
		cipher:      cipher,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// ---------------------------------------------------------------------------
// Initiate
// ---------------------------------------------------------------------------

// Initiate builds the provider authorization URL seeded with a signed state
// token. No network call is made and nothing is persisted.
func (s *ConnectService) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	provider, err := s.registry.Provider(input.Provider)
	if err != nil {
		return nil, err
	}

	state, err := s.codec.Encode(oauthstate.Payload{
		TenantID:   input.TenantID,
		UserID:     input.UserID,
		SiteID:     input.SiteID,
		Region:     input.Region,
		Custom:     input.CustomState,
		SuccessURL: input.SuccessURL,
		ErrorURL:   input.ErrorURL,
	})
	if err != nil {
		return nil, err
	}

	authURL, err := provider.BuildAuthorizationURL(integration.AuthorizeParams{
		State:  state,
		Site:   integration.MeliSite(input.SiteID),
		Region: integration.AmazonRegion(input.Region),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("oauth connect initiated",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("provider", input.Provider.String()))

	return &InitiateResult{
		Provider: input.Provider,
		AuthURL:  authURL,
		State:    state,
	}, nil
}

// ---------------------------------------------------------------------------
// Callback
// ---------------------------------------------------------------------------

// HandleCallback completes the OAuth flow. The denial branch is checked
// before anything else; the state is validated before the code is spent,
// because authorization codes are single-use and must not be wasted on a
// request we would reject anyway. The exchange itself is one attempt with
// no retry. On failures after the state validated, the returned result
// carries the browser error-redirect URL from the state payload.
func (s *ConnectService) HandleCallback(ctx context.Context, input CallbackInput) (*CallbackResult, error) {
	result := &CallbackResult{Provider: input.Provider}

	// Denial branch first: no code exists, nothing to exchange. The
	// provider's description is the message the tenant sees; the bare
	// error code is the fallback when no description was sent.
	if input.ErrorParam != "" {
		message := input.ErrorDescription
		if message == "" {
			message = input.ErrorParam
		}
		// Best effort: a valid state still yields a browser redirect
		if payload, err := s.codec.Decode(input.State); err == nil {
			result.RedirectURL = buildRedirectURL(payload.ErrorURL, "error", input.Provider, message)
		}
		s.logger.Info("oauth authorization denied",
			zap.String("provider", input.Provider.String()),
			zap.String("error", input.ErrorParam))
		return result, fmt.Errorf("%w: %s", integration.ErrAuthorizationDenied, message)
	}

	// State must verify before the single-use code is spent
	payload, err := s.codec.Decode(input.State)
	if err != nil {
		return result, err
	}

	provider, err := s.registry.Provider(input.Provider)
	if err != nil {
		return result, err
	}

	grant, err := provider.ExchangeCode(ctx, integration.ExchangeParams{
		Code:   input.Code,
		ShopID: input.ShopID,
	})
	if err != nil {
		result.RedirectURL = buildRedirectURL(payload.ErrorURL, "error", input.Provider, "token exchange failed")
		s.logger.Warn("oauth code exchange failed",
			zap.String("tenant_id", payload.TenantID.String()),
			zap.String("provider", input.Provider.String()),
			zap.Error(err))
		return result, err
	}

	credential, err := s.storeGrant(ctx, payload, input.Provider, grant)
	if err != nil {
		result.RedirectURL = buildRedirectURL(payload.ErrorURL, "error", input.Provider, "credential persistence failed")
		return result, err
	}

	result.ProviderAccountID = credential.ProviderAccountID
	result.Scopes = credential.Scopes
	result.RedirectURL = buildRedirectURL(payload.SuccessURL, "connected", input.Provider, "")

	s.logger.Info("oauth connect completed",
		zap.String("tenant_id", payload.TenantID.String()),
		zap.String("provider", input.Provider.String()),
		zap.String("provider_account_id", credential.ProviderAccountID))

	return result, nil
}

// storeGrant encrypts the granted tokens and upserts the credential record.
// A reconnect replaces the stored tokens and resets the error bookkeeping.
func (s *ConnectService) storeGrant(ctx context.Context, payload *oauthstate.Payload, providerCode integration.ProviderCode, grant *integration.TokenGrant) (*integration.Credential, error) {
	accessCiphertext, err := s.cipher.Encrypt(grant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}
	refreshCiphertext, err := s.cipher.Encrypt(grant.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}

	credential, err := integration.NewCredential(payload.TenantID, providerCode, accessCiphertext, refreshCiphertext)
	if err != nil {
		return nil, err
	}
	credential.Scopes = grant.Scopes
	credential.ProviderAccountID = grant.ProviderAccountID
	credential.SiteID = siteIDFromPayload(payload)

	if err := s.credentials.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}
	return credential, nil
}

// siteIDFromPayload picks the stored sub-routing value for the provider
func siteIDFromPayload(payload *oauthstate.Payload) string {
	if payload.SiteID != "" {
		return payload.SiteID
	}
	return payload.Region
}

// buildRedirectURL appends the completion parameters to a browser return
// URL. An empty base yields an empty result, meaning respond with JSON.
func buildRedirectURL(base, status string, provider integration.ProviderCode, message string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	query := u.Query()
	query.Set("status", status)
	query.Set("integration", string(provider))
	if message != "" {
		query.Set("message", message)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// ---------------------------------------------------------------------------
// Refresh / Disconnect / List
// ---------------------------------------------------------------------------

// RefreshTokens rotates the stored tokens for a connected provider and
// persists the re-encrypted result. Rejections are recorded on the
// credential's error bookkeeping.
func (s *ConnectService) RefreshTokens(ctx context.Context, tenantID uuid.UUID, providerCode integration.ProviderCode) error {
	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, providerCode)
	if err != nil {
		return err
	}
	if !credential.IsConfigured() {
		return integration.ErrNotConfigured
	}

	refreshToken, err := s.cipher.Decrypt(credential.RefreshTokenCiphertext)
	if err != nil {
		if errors.Is(err, crypto.ErrIntegrityCheckFailed) {
			return fmt.Errorf("%w: stored refresh token failed integrity check", integration.ErrRefreshRejected)
		}
		return err
	}

	provider, err := s.registry.Provider(providerCode)
	if err != nil {
		return err
	}
	provider.SetTokens(integration.TokenSet{
		RefreshToken:      refreshToken,
		ProviderAccountID: credential.ProviderAccountID,
		SiteID:            credential.SiteID,
	})

	grant, err := provider.RefreshTokens(ctx, refreshToken)
	if err != nil {
		credential.RecordFailure("token refresh failed", s.now())
		if saveErr := s.credentials.Save(ctx, credential); saveErr != nil {
			s.logger.Error("failed to record refresh failure",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider", providerCode.String()),
				zap.Error(saveErr))
		}
		return err
	}

	accessCiphertext, err := s.cipher.Encrypt(grant.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}
	credential.AccessTokenCiphertext = accessCiphertext
	// Some providers rotate the refresh token on every refresh
	if grant.RefreshToken != "" {
		refreshCiphertext, err := s.cipher.Encrypt(grant.RefreshToken)
		if err != nil {
			return fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
		}
		credential.RefreshTokenCiphertext = refreshCiphertext
	}
	credential.RecordSuccess()

	if err := s.credentials.Save(ctx, credential); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}

	s.logger.Info("tokens refreshed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", providerCode.String()))
	return nil
}

// Disconnect clears the stored tokens while keeping the record and its
// history. The provider reads as not configured afterwards.
func (s *ConnectService) Disconnect(ctx context.Context, tenantID uuid.UUID, providerCode integration.ProviderCode) error {
	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, providerCode)
	if err != nil {
		return err
	}

	credential.Disconnect()
	if err := s.credentials.Save(ctx, credential); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}

	s.logger.Info("integration disconnected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", providerCode.String()))
	return nil
}

// List returns a summary row for every registered provider, merged with the
// tenant's stored records where they exist.
func (s *ConnectService) List(ctx context.Context, tenantID uuid.UUID) ([]IntegrationSummary, error) {
	stored, err := s.credentials.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byProvider := make(map[integration.ProviderCode]*integration.Credential, len(stored))
	for i := range stored {
		byProvider[stored[i].Provider] = &stored[i]
	}

	codes := s.registry.Codes()
	summaries := make([]IntegrationSummary, 0, len(codes))
	for _, code := range codes {
		summary := IntegrationSummary{
			Provider:    code,
			DisplayName: code.DisplayName(),
		}
		if credential, ok := byProvider[code]; ok {
			summary.Configured = credential.IsConfigured()
			summary.SyncEnabled = credential.SyncEnabled
			summary.WebhookEnabled = credential.WebhookEnabled
			summary.ProviderAccountID = credential.ProviderAccountID
			summary.SiteID = credential.SiteID
			summary.ErrorCount = credential.ErrorCount
			summary.LastError = credential.LastError
			summary.LastErrorAt = credential.LastErrorAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
