package integrationapp

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
	"github.com/commercehub/backend/internal/infrastructure/oauthstate"
)

func newConnectFixture(t *testing.T, providers map[integration.ProviderCode]*fakeProvider) (*ConnectService, *fakeCredentialRepo, *oauthstate.Codec, *crypto.TokenCipher) {
	t.Helper()
	cipher := newTestCipher(t)
	codec := newTestCodec(t)
	repo := newFakeCredentialRepo()
	service := NewConnectService(&fakeRegistry{providers: providers}, codec, cipher, repo, nil)
	return service, repo, codec, cipher
}

func TestConnectService_Initiate(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	provider := &fakeProvider{
		code:    integration.ProviderCodeMercadoLivre,
		authURL: "https://auth.mercadolivre.com.br/authorization",
	}
	service, _, codec, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeMercadoLivre: provider,
	})

	result, err := service.Initiate(context.Background(), InitiateInput{
		TenantID:   tenantID,
		UserID:     userID,
		Provider:   integration.ProviderCodeMercadoLivre,
		SiteID:     "MLB",
		SuccessURL: "https://app.example.com/integrations/done",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.AuthURL, provider.authURL))
	require.NotEmpty(t, result.State)

	// The state embedded in the URL round-trips through the codec
	payload, err := codec.Decode(result.State)
	require.NoError(t, err)
	assert.Equal(t, tenantID, payload.TenantID)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "MLB", payload.SiteID)
	assert.Equal(t, "https://app.example.com/integrations/done", payload.SuccessURL)
}

func TestConnectService_Initiate_NotConfigured(t *testing.T) {
	service, _, _, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{})

	_, err := service.Initiate(context.Background(), InitiateInput{
		TenantID: uuid.New(),
		Provider: integration.ProviderCodeAmazon,
	})
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestConnectService_HandleCallback_Success(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code: integration.ProviderCodeBling,
		grant: &integration.TokenGrant{
			AccessToken:       "access-plain",
			RefreshToken:      "refresh-plain",
			Scopes:            []string{"orders", "products"},
			ProviderAccountID: "acct-99",
			ExpiresIn:         21600,
		},
	}
	service, repo, codec, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeBling: provider,
	})

	state, err := codec.Encode(oauthstate.Payload{
		TenantID:   tenantID,
		UserID:     uuid.New(),
		SuccessURL: "https://app.example.com/done",
	})
	require.NoError(t, err)

	result, err := service.HandleCallback(context.Background(), CallbackInput{
		Provider: integration.ProviderCodeBling,
		Code:     "one-time-code",
		State:    state,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.exchangeCalls)
	assert.Equal(t, "acct-99", result.ProviderAccountID)

	redirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "connected", redirect.Query().Get("status"))
	assert.Equal(t, "BLING", redirect.Query().Get("integration"))

	stored := repo.stored(tenantID, integration.ProviderCodeBling)
	require.NotNil(t, stored)
	assert.True(t, stored.SyncEnabled)
	assert.Equal(t, []string{"orders", "products"}, stored.Scopes)

	// Tokens are persisted as ciphertext only
	assert.NotEqual(t, "access-plain", stored.AccessTokenCiphertext)
	assert.NotEqual(t, "refresh-plain", stored.RefreshTokenCiphertext)
	plain, err := cipher.Decrypt(stored.AccessTokenCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "access-plain", plain)
}

func TestConnectService_HandleCallback_Denial(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{code: integration.ProviderCodeMercadoLivre}
	service, repo, codec, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeMercadoLivre: provider,
	})

	state, err := codec.Encode(oauthstate.Payload{
		TenantID: tenantID,
		ErrorURL: "https://app.example.com/failed",
	})
	require.NoError(t, err)

	result, err := service.HandleCallback(context.Background(), CallbackInput{
		Provider:         integration.ProviderCodeMercadoLivre,
		State:            state,
		ErrorParam:       "access_denied",
		ErrorDescription: "the user declined the authorization request",
	})
	assert.ErrorIs(t, err, integration.ErrAuthorizationDenied)
	// The provider's description is the surfaced message
	assert.Contains(t, err.Error(), "the user declined the authorization request")
	// The denial branch never spends an exchange attempt
	assert.Equal(t, 0, provider.exchangeCalls)
	assert.Equal(t, 0, repo.upsertCalls)

	redirect, parseErr := url.Parse(result.RedirectURL)
	require.NoError(t, parseErr)
	assert.Equal(t, "error", redirect.Query().Get("status"))
	assert.Equal(t, "the user declined the authorization request", redirect.Query().Get("message"))
}

func TestConnectService_HandleCallback_DenialWithoutDescription(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{code: integration.ProviderCodeMercadoLivre}
	service, _, codec, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeMercadoLivre: provider,
	})

	state, err := codec.Encode(oauthstate.Payload{
		TenantID: tenantID,
		ErrorURL: "https://app.example.com/failed",
	})
	require.NoError(t, err)

	result, err := service.HandleCallback(context.Background(), CallbackInput{
		Provider:   integration.ProviderCodeMercadoLivre,
		State:      state,
		ErrorParam: "access_denied",
	})
	assert.ErrorIs(t, err, integration.ErrAuthorizationDenied)
	// Without a description the raw error code is the message
	redirect, parseErr := url.Parse(result.RedirectURL)
	require.NoError(t, parseErr)
	assert.Equal(t, "error", redirect.Query().Get("status"))
	assert.Equal(t, "access_denied", redirect.Query().Get("message"))
}

func TestConnectService_HandleCallback_BadState(t *testing.T) {
	expiredCodec := newTestCodec(t).WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	})
	expiredState, err := expiredCodec.Encode(oauthstate.Payload{TenantID: uuid.New()})
	require.NoError(t, err)

	tests := []struct {
		name    string
		state   string
		wantErr error
	}{
		{"malformed", "not-a-state-token", oauthstate.ErrStateMalformed},
		{"tampered", expiredState + "x", oauthstate.ErrStateMalformed},
		{"expired", expiredState, oauthstate.ErrStateExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				code:  integration.ProviderCodeBling,
				grant: &integration.TokenGrant{AccessToken: "a", RefreshToken: "r"},
			}
			service, repo, _, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
				integration.ProviderCodeBling: provider,
			})

			_, err := service.HandleCallback(context.Background(), CallbackInput{
				Provider: integration.ProviderCodeBling,
				Code:     "one-time-code",
				State:    tt.state,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			// The single-use code must not be spent on a rejected request
			assert.Equal(t, 0, provider.exchangeCalls)
			assert.Equal(t, 0, repo.upsertCalls)
		})
	}
}

func TestConnectService_HandleCallback_ExchangeRejected(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code:     integration.ProviderCodeShopee,
		grantErr: integration.ErrExchangeRejected,
	}
	service, repo, codec, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeShopee: provider,
	})

	state, err := codec.Encode(oauthstate.Payload{
		TenantID: tenantID,
		ErrorURL: "https://app.example.com/failed",
	})
	require.NoError(t, err)

	result, err := service.HandleCallback(context.Background(), CallbackInput{
		Provider: integration.ProviderCodeShopee,
		Code:     "stale-code",
		State:    state,
		ShopID:   "123456",
	})
	assert.ErrorIs(t, err, integration.ErrExchangeRejected)
	// One attempt, no retry, nothing stored
	assert.Equal(t, 1, provider.exchangeCalls)
	assert.Equal(t, 0, repo.upsertCalls)

	redirect, parseErr := url.Parse(result.RedirectURL)
	require.NoError(t, parseErr)
	assert.Equal(t, "error", redirect.Query().Get("status"))
}

func TestConnectService_HandleCallback_Reconnect(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code: integration.ProviderCodeBling,
		grant: &integration.TokenGrant{
			AccessToken:       "new-access",
			RefreshToken:      "new-refresh",
			ProviderAccountID: "acct-2",
		},
	}
	service, repo, codec, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeBling: provider,
	})

	// Existing record with accumulated errors
	oldAccess, err := cipher.Encrypt("old-access")
	require.NoError(t, err)
	existing, err := integration.NewCredential(tenantID, integration.ProviderCodeBling, oldAccess, oldAccess)
	require.NoError(t, err)
	existing.RecordFailure("token refresh failed", time.Now())
	require.NoError(t, repo.Save(context.Background(), existing))

	state, err := codec.Encode(oauthstate.Payload{TenantID: tenantID})
	require.NoError(t, err)

	_, err = service.HandleCallback(context.Background(), CallbackInput{
		Provider: integration.ProviderCodeBling,
		Code:     "fresh-code",
		State:    state,
	})
	require.NoError(t, err)

	stored := repo.stored(tenantID, integration.ProviderCodeBling)
	require.NotNil(t, stored)
	// Reconnect replaces tokens and resets the error bookkeeping
	assert.Equal(t, 0, stored.ErrorCount)
	assert.Empty(t, stored.LastError)
	plain, err := cipher.Decrypt(stored.AccessTokenCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "new-access", plain)
}

func TestConnectService_RefreshTokens(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code: integration.ProviderCodeMercadoLivre,
		refreshGrant: &integration.TokenGrant{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
		},
	}
	service, repo, _, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeMercadoLivre: provider,
	})

	accessCT, err := cipher.Encrypt("stored-access")
	require.NoError(t, err)
	refreshCT, err := cipher.Encrypt("stored-refresh")
	require.NoError(t, err)
	credential, err := integration.NewCredential(tenantID, integration.ProviderCodeMercadoLivre, accessCT, refreshCT)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), credential))

	require.NoError(t, service.RefreshTokens(context.Background(), tenantID, integration.ProviderCodeMercadoLivre))
	assert.Equal(t, 1, provider.refreshCalls)

	stored := repo.stored(tenantID, integration.ProviderCodeMercadoLivre)
	access, err := cipher.Decrypt(stored.AccessTokenCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", access)
	refresh, err := cipher.Decrypt(stored.RefreshTokenCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh", refresh)
}

func TestConnectService_RefreshTokens_KeepsRefreshWhenNotRotated(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code:         integration.ProviderCodeBling,
		refreshGrant: &integration.TokenGrant{AccessToken: "rotated-access"},
	}
	service, repo, _, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeBling: provider,
	})

	accessCT, err := cipher.Encrypt("stored-access")
	require.NoError(t, err)
	refreshCT, err := cipher.Encrypt("stored-refresh")
	require.NoError(t, err)
	credential, err := integration.NewCredential(tenantID, integration.ProviderCodeBling, accessCT, refreshCT)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), credential))

	require.NoError(t, service.RefreshTokens(context.Background(), tenantID, integration.ProviderCodeBling))

	stored := repo.stored(tenantID, integration.ProviderCodeBling)
	refresh, err := cipher.Decrypt(stored.RefreshTokenCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "stored-refresh", refresh)
}

func TestConnectService_RefreshTokens_RejectionRecorded(t *testing.T) {
	tenantID := uuid.New()
	provider := &fakeProvider{
		code:       integration.ProviderCodeShopee,
		refreshErr: integration.ErrRefreshRejected,
	}
	service, repo, _, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeShopee: provider,
	})

	accessCT, err := cipher.Encrypt("stored-access")
	require.NoError(t, err)
	refreshCT, err := cipher.Encrypt("stored-refresh")
	require.NoError(t, err)
	credential, err := integration.NewCredential(tenantID, integration.ProviderCodeShopee, accessCT, refreshCT)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), credential))

	err = service.RefreshTokens(context.Background(), tenantID, integration.ProviderCodeShopee)
	assert.ErrorIs(t, err, integration.ErrRefreshRejected)

	stored := repo.stored(tenantID, integration.ProviderCodeShopee)
	assert.Equal(t, 1, stored.ErrorCount)
	assert.Equal(t, "token refresh failed", stored.LastError)
	// The stored tokens survive a rejected refresh
	access, decErr := cipher.Decrypt(stored.AccessTokenCiphertext)
	require.NoError(t, decErr)
	assert.Equal(t, "stored-access", access)
}

func TestConnectService_RefreshTokens_NotConnected(t *testing.T) {
	service, _, _, _ := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeBling: {code: integration.ProviderCodeBling},
	})

	err := service.RefreshTokens(context.Background(), uuid.New(), integration.ProviderCodeBling)
	assert.ErrorIs(t, err, integration.ErrCredentialNotFound)
}

func TestConnectService_Disconnect(t *testing.T) {
	tenantID := uuid.New()
	service, repo, _, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeAmazon: {code: integration.ProviderCodeAmazon},
	})

	accessCT, err := cipher.Encrypt("stored-access")
	require.NoError(t, err)
	credential, err := integration.NewCredential(tenantID, integration.ProviderCodeAmazon, accessCT, accessCT)
	require.NoError(t, err)
	credential.ProviderAccountID = "seller-1"
	credential.RecordFailure("orders sync failed", time.Now())
	require.NoError(t, repo.Save(context.Background(), credential))

	require.NoError(t, service.Disconnect(context.Background(), tenantID, integration.ProviderCodeAmazon))

	stored := repo.stored(tenantID, integration.ProviderCodeAmazon)
	assert.False(t, stored.IsConfigured())
	assert.Empty(t, stored.ProviderAccountID)
	assert.False(t, stored.SyncEnabled)
	// Error history survives the disconnect
	assert.Equal(t, 1, stored.ErrorCount)
}

func TestConnectService_List(t *testing.T) {
	tenantID := uuid.New()
	service, repo, _, cipher := newConnectFixture(t, map[integration.ProviderCode]*fakeProvider{
		integration.ProviderCodeBling:        {code: integration.ProviderCodeBling},
		integration.ProviderCodeMercadoLivre: {code: integration.ProviderCodeMercadoLivre},
	})

	accessCT, err := cipher.Encrypt("stored-access")
	require.NoError(t, err)
	credential, err := integration.NewCredential(tenantID, integration.ProviderCodeBling, accessCT, accessCT)
	require.NoError(t, err)
	credential.ProviderAccountID = "acct-7"
	require.NoError(t, repo.Save(context.Background(), credential))

	summaries, err := service.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byProvider := make(map[integration.ProviderCode]IntegrationSummary, len(summaries))
	for _, s := range summaries {
		byProvider[s.Provider] = s
	}
	assert.True(t, byProvider[integration.ProviderCodeBling].Configured)
	assert.Equal(t, "acct-7", byProvider[integration.ProviderCodeBling].ProviderAccountID)
	assert.False(t, byProvider[integration.ProviderCodeMercadoLivre].Configured)
	assert.Equal(t, "Mercado Livre", byProvider[integration.ProviderCodeMercadoLivre].DisplayName)
}
