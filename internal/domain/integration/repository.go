package integration

import (
	"context"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Repository Interfaces
// ---------------------------------------------------------------------------

// CredentialRepository defines the interface for persisting credential records
type CredentialRepository interface {
	// FindByTenantAndProvider finds the record for a tenant/provider pair.
	// Returns ErrCredentialNotFound when no row exists.
	FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider ProviderCode) (*Credential, error)

	// FindAllForTenant finds every credential record for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Credential, error)

	// Upsert inserts the record or, when a row already exists for the
	// (tenant, provider) pair, overwrites its token and status fields
	Upsert(ctx context.Context, credential *Credential) error

	// Save updates an existing record
	Save(ctx context.Context, credential *Credential) error
}

// SyncRunFilter defines filter criteria for run history queries
type SyncRunFilter struct {
	// Provider filters by provider (optional)
	Provider *ProviderCode
	// Status filters by run status (optional)
	Status *SyncRunStatus
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}

// SyncRunRepository defines the interface for the append-only run ledger
type SyncRunRepository interface {
	// Create appends a new run row
	Create(ctx context.Context, run *SyncRun) error

	// Save updates an existing run row (status transition, counts)
	Save(ctx context.Context, run *SyncRun) error

	// FindByID finds a run by its identifier
	FindByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*SyncRun, error)

	// FindAllForTenant finds runs matching the filter, newest first,
	// returning the page and the total match count
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter SyncRunFilter) ([]SyncRun, int64, error)
}
