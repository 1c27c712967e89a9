package integrationapp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
)

// HealthService produces the tri-state health report for an integration.
// A provider without stored tokens is classified not_configured without any
// network traffic; stored credentials are verified with one cheap
// authenticated read.
type HealthService struct {
	registry    integration.ProviderRegistry
	cipher      *crypto.TokenCipher
	credentials integration.CredentialRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewHealthService creates a new HealthService
func NewHealthService(
	registry integration.ProviderRegistry,
	cipher *crypto.TokenCipher,
	credentials integration.CredentialRepository,
	logger *zap.Logger,
) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{
		registry:    registry,
		cipher:      cipher,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// Check reports the health of one tenant/provider integration
func (s *HealthService) Check(ctx context.Context, tenantID uuid.UUID, providerCode integration.ProviderCode) (*HealthReport, error) {
	if !providerCode.IsValid() {
		return nil, integration.ErrInvalidProvider
	}

	credential, err := s.credentials.FindByTenantAndProvider(ctx, tenantID, providerCode)
	if errors.Is(err, integration.ErrCredentialNotFound) {
		return &HealthReport{
			Provider:  providerCode,
			Status:    HealthStatusNotConfigured,
			CheckedAt: s.now(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	report := &HealthReport{
		Provider:  providerCode,
		CheckedAt: s.now(),
		LastSync: map[integration.SyncResource]*time.Time{
			integration.SyncResourceProducts: credential.LastSyncProductsAt,
			integration.SyncResourceOrders:   credential.LastSyncOrdersAt,
			integration.SyncResourceFinance:  credential.LastSyncFinanceAt,
		},
		Config: HealthConfigEcho{
			SyncEnabled:    credential.SyncEnabled,
			WebhookEnabled: credential.WebhookEnabled,
			Scopes:         credential.Scopes,
			SiteID:         credential.SiteID,
		},
	}
	if credential.ErrorCount > 0 {
		report.Errors = &ErrorSummary{
			Message: credential.LastError,
			Count:   credential.ErrorCount,
		}
		if credential.LastErrorAt != nil {
			report.Errors.LastOccurred = *credential.LastErrorAt
		}
	}

	if !credential.IsConfigured() {
		report.Status = HealthStatusNotConfigured
		return report, nil
	}
	report.Connected = true

	accessToken, err := s.cipher.Decrypt(credential.AccessTokenCiphertext)
	if err != nil {
		// A decrypt failure is an unhealthy result, not an internal error:
		// the stored blob is unusable and reconnecting is the remedy.
		report.Status = HealthStatusUnhealthy
		report.TokenValid = false
		report.Message = "stored credentials failed integrity check"
		s.recordOutcome(ctx, credential, false, report.Message)
		return report, nil
	}

	provider, err := s.registry.Provider(providerCode)
	if err != nil {
		return nil, err
	}
	provider.SetTokens(integration.TokenSet{
		AccessToken:       accessToken,
		ProviderAccountID: credential.ProviderAccountID,
		SiteID:            credential.SiteID,
	})

	check := provider.HealthCheck(ctx)
	report.TokenValid = check.TokenValid
	report.Message = check.Message
	if check.Status == integration.HealthStateHealthy {
		report.Status = HealthStatusHealthy
		s.recordOutcome(ctx, credential, true, "")
	} else {
		report.Status = HealthStatusUnhealthy
		s.recordOutcome(ctx, credential, false, check.Message)
		// reflect the just-recorded failure in the summary
		report.Errors = &ErrorSummary{
			Message: credential.LastError,
			Count:   credential.ErrorCount,
		}
		if credential.LastErrorAt != nil {
			report.Errors.LastOccurred = *credential.LastErrorAt
		}
	}

	return report, nil
}

// recordOutcome persists the health outcome on the credential's error
// bookkeeping. Persistence problems are logged, not surfaced: the report
// itself is still valid.
func (s *HealthService) recordOutcome(ctx context.Context, credential *integration.Credential, healthy bool, message string) {
	if healthy {
		if credential.ErrorCount == 0 {
			return
		}
		credential.RecordSuccess()
	} else {
		credential.RecordFailure(message, s.now())
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		s.logger.Error("failed to persist health outcome",
			zap.String("tenant_id", credential.TenantID.String()),
			zap.String("provider", credential.Provider.String()),
			zap.Error(err))
	}
}
