package integrationapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
)

// ResourceETL is the collaborator that moves one resource's data from a
// hydrated provider into local storage and reports record counts. The sync
// service owns policy, run accounting and credential bookkeeping; the ETL
// owns the data movement.
type ResourceETL interface {
	Run(ctx context.Context, provider integration.MarketplaceProvider, tenantID uuid.UUID, resource integration.SyncResource, filters map[string]any) (integration.ResourceResult, error)
}

// SyncService triggers sync runs and maintains the run ledger. Concurrent
// triggers for the same tenant/provider are not serialized here; each opens
// its own run row, and callers needing single-flight behavior must layer it
// above this service.
type SyncService struct {
	registry    integration.ProviderRegistry
	cipher      *crypto.TokenCipher
	credentials integration.CredentialRepository
	runs        integration.SyncRunRepository
	etl         ResourceETL
	logger      *zap.Logger
	now         func() time.Time
}

// NewSyncService creates a new SyncService
func NewSyncService(
	registry integration.ProviderRegistry,
	cipher *crypto.TokenCipher,
	credentials integration.CredentialRepository,
	runs integration.SyncRunRepository,
	etl ResourceETL,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		registry:    registry,
		cipher:      cipher,
		credentials: credentials,
		runs:        runs,
		etl:         etl,
		logger:      logger,
		now:         time.Now,
	}
}

// Trigger runs a sync for one provider. Policy checks (configuration, the
// sync-enabled flag, token decryption) happen before a run row is opened, so
// rejected triggers leave no ledger trace. Once a row exists it is
// guaranteed to reach a terminal status, and its id is returned on every
// path, including failures.
func (s *SyncService) Trigger(ctx context.Context, input TriggerInput) (*TriggerResult, error) {
	if !input.Resource.IsValid() {
		return nil, integration.ErrInvalidResource
	}

	credential, err := s.credentials.FindByTenantAndProvider(ctx, input.TenantID, input.Provider)
	if err != nil {
		return nil, err
	}
	if !credential.IsConfigured() {
		return nil, integration.ErrNotConfigured
	}
	if !credential.SyncEnabled && !input.Force {
		return nil, integration.ErrSyncDisabled
	}

	accessToken, err := s.cipher.Decrypt(credential.AccessTokenCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: stored access token is unusable", integration.ErrProviderAuthFailed)
	}

	provider, err := s.registry.Provider(input.Provider)
	if err != nil {
		return nil, err
	}
	provider.SetTokens(integration.TokenSet{
		AccessToken:       accessToken,
		ProviderAccountID: credential.ProviderAccountID,
		SiteID:            credential.SiteID,
	})

	run, err := integration.StartSyncRun(input.TenantID, input.Provider, input.Resource, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPersistenceFailed, err)
	}

	completed := make([]integration.ResourceResult, 0, 3)
	// The run must never be left open, whatever path exits below
	defer func() {
		if !run.IsTerminal() {
			_ = run.Fail("sync aborted", completed, s.now())
			s.saveRun(ctx, run)
		}
	}()

	for _, resource := range input.Resource.Expand() {
		result, etlErr := s.etl.Run(ctx, provider, input.TenantID, resource, input.Filters)
		if etlErr != nil {
			_ = run.Fail(etlErr.Error(), completed, s.now())
			s.saveRun(ctx, run)
			s.recordFailure(ctx, credential, resource, etlErr)
			return &TriggerResult{
				RunID:   run.ID,
				Status:  run.Status,
				Results: run.Results,
			}, etlErr
		}
		completed = append(completed, result)
		if markErr := credential.MarkSynced(resource, s.now()); markErr != nil {
			s.logger.Error("failed to stamp resource sync time",
				zap.String("resource", resource.String()),
				zap.Error(markErr))
		}
	}

	_ = run.Complete(completed, s.now())
	s.saveRun(ctx, run)

	credential.RecordSuccess()
	if err := s.credentials.Save(ctx, credential); err != nil {
		s.logger.Error("failed to persist sync bookkeeping",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("provider", input.Provider.String()),
			zap.Error(err))
	}

	s.logger.Info("sync run completed",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("provider", input.Provider.String()),
		zap.String("resource", input.Resource.String()),
		zap.String("run_id", run.ID.String()),
		zap.Int("records_processed", run.RecordsProcessed))

	return &TriggerResult{
		RunID:   run.ID,
		Status:  run.Status,
		Results: run.Results,
	}, nil
}

// Run returns one run row from the ledger
func (s *SyncService) Run(ctx context.Context, tenantID uuid.UUID, runID uuid.UUID) (*integration.SyncRun, error) {
	return s.runs.FindByID(ctx, tenantID, runID)
}

// Runs returns the run history, newest first
func (s *SyncService) Runs(ctx context.Context, tenantID uuid.UUID, filter integration.SyncRunFilter) ([]integration.SyncRun, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.runs.FindAllForTenant(ctx, tenantID, filter)
}

func (s *SyncService) saveRun(ctx context.Context, run *integration.SyncRun) {
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Error("failed to persist sync run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}

func (s *SyncService) recordFailure(ctx context.Context, credential *integration.Credential, resource integration.SyncResource, cause error) {
	credential.RecordFailure(fmt.Sprintf("%s sync failed", resource), s.now())
	if err := s.credentials.Save(ctx, credential); err != nil {
		s.logger.Error("failed to record sync failure",
			zap.String("tenant_id", credential.TenantID.String()),
			zap.String("provider", credential.Provider.String()),
			zap.Error(err))
	}
	s.logger.Warn("sync resource failed",
		zap.String("tenant_id", credential.TenantID.String()),
		zap.String("provider", credential.Provider.String()),
		zap.String("resource", resource.String()),
		zap.Error(cause))
}
