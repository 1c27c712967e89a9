package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Run Types
// ---------------------------------------------------------------------------

// SyncRunStatus represents the lifecycle status of a sync run
type SyncRunStatus string

const (
	// SyncRunStatusRunning indicates the run is in progress
	SyncRunStatusRunning SyncRunStatus = "running"
	// SyncRunStatusCompleted indicates every resource finished successfully
	SyncRunStatusCompleted SyncRunStatus = "completed"
	// SyncRunStatusFailed indicates at least one resource failed
	SyncRunStatusFailed SyncRunStatus = "failed"
)

// IsValid returns true if the status is valid
func (s SyncRunStatus) IsValid() bool {
	switch s {
	case SyncRunStatusRunning, SyncRunStatusCompleted, SyncRunStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncRunStatus
func (s SyncRunStatus) String() string {
	return string(s)
}

// IsTerminal returns true for completed or failed
func (s SyncRunStatus) IsTerminal() bool {
	return s == SyncRunStatusCompleted || s == SyncRunStatusFailed
}

// ResourceResult holds the record counts for one resource within a run
type ResourceResult struct {
	// Resource is the concrete resource this result covers
	Resource SyncResource
	// Processed is the number of provider records examined
	Processed int
	// Inserted is the number of new local records created
	Inserted int
	// Updated is the number of existing local records changed
	Updated int
}

// SyncRun is one row of the append-only sync run ledger. A run is opened in
// running state before any provider work starts, so an abandoned run is
// visible as a stuck running row rather than missing entirely.
type SyncRun struct {
	// ID is the unique identifier of the run
	ID uuid.UUID
	// TenantID is the tenant this run belongs to
	TenantID uuid.UUID
	// Provider identifies the provider being synced
	Provider ProviderCode
	// Resource is the requested resource (may be "all")
	Resource SyncResource
	// Status is the run lifecycle status
	Status SyncRunStatus
	// StartedAt is when the run was opened
	StartedAt time.Time
	// CompletedAt is when the run reached a terminal status
	CompletedAt *time.Time
	// RecordsProcessed is the total across all resource results
	RecordsProcessed int
	// RecordsInserted is the total across all resource results
	RecordsInserted int
	// RecordsUpdated is the total across all resource results
	RecordsUpdated int
	// ErrorMessage describes the failure when Status is failed
	ErrorMessage string
	// Results holds the per-resource counts accumulated so far
	Results []ResourceResult
	// CreatedAt is when the record was created
	CreatedAt time.Time
	// UpdatedAt is when the record was last updated
	UpdatedAt time.Time
}

// StartSyncRun opens a new run in running state
func StartSyncRun(tenantID uuid.UUID, provider ProviderCode, resource SyncResource, at time.Time) (*SyncRun, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProvider
	}
	if !resource.IsValid() {
		return nil, ErrInvalidResource
	}
	return &SyncRun{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Provider:  provider,
		Resource:  resource,
		Status:    SyncRunStatusRunning,
		StartedAt: at,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// IsTerminal returns true if the run has reached a terminal status
func (r *SyncRun) IsTerminal() bool {
	return r.Status.IsTerminal()
}

func (r *SyncRun) applyResults(results []ResourceResult) {
	r.Results = results
	r.RecordsProcessed = 0
	r.RecordsInserted = 0
	r.RecordsUpdated = 0
	for _, res := range results {
		r.RecordsProcessed += res.Processed
		r.RecordsInserted += res.Inserted
		r.RecordsUpdated += res.Updated
	}
}

// Complete closes the run as successful with the final per-resource counts
func (r *SyncRun) Complete(results []ResourceResult, at time.Time) error {
	if r.IsTerminal() {
		return ErrRunClosed
	}
	r.applyResults(results)
	r.Status = SyncRunStatusCompleted
	r.CompletedAt = &at
	r.UpdatedAt = at
	return nil
}

// Fail closes the run as failed, keeping counts from the resources that did
// finish before the failure.
func (r *SyncRun) Fail(message string, partial []ResourceResult, at time.Time) error {
	if r.IsTerminal() {
		return ErrRunClosed
	}
	r.applyResults(partial)
	r.Status = SyncRunStatusFailed
	r.ErrorMessage = message
	r.CompletedAt = &at
	r.UpdatedAt = at
	return nil
}
