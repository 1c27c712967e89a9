// Package integrationapp contains the application services orchestrating the
// provider integration lifecycle: connect/callback, token refresh, health
// reporting and sync triggering.
package integrationapp

import (
	"time"

	"github.com/google/uuid"

	"github.com/commercehub/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Connect / Callback DTOs
// ---------------------------------------------------------------------------

// InitiateInput carries the inputs for starting an OAuth connect flow
type InitiateInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Provider integration.ProviderCode
	// SiteID selects the Mercado Livre site (closed enum)
	SiteID string
	// Region selects the Amazon region (closed enum)
	Region string
	// CustomState is caller data echoed back through the callback
	CustomState string
	// SuccessURL is the post-connect browser redirect target
	SuccessURL string
	// ErrorURL is the failure browser redirect target
	ErrorURL string
}

// InitiateResult is the outcome of starting a connect flow
type InitiateResult struct {
	Provider integration.ProviderCode
	AuthURL  string
	State    string
}

// CallbackInput carries the raw provider callback parameters
type CallbackInput struct {
	Provider integration.ProviderCode
	Code     string
	State    string
	// ShopID is the extra identifier Shopee delivers alongside the code
	ShopID string
	// ErrorParam is the provider's error query parameter, set on denial
	ErrorParam string
	// ErrorDescription is the provider's human-readable denial reason
	ErrorDescription string
}

// CallbackResult is the outcome of a completed (or failed) callback.
// RedirectURL is set when the originating state carried a browser return
// URL; it is populated on both success and post-validation failures.
type CallbackResult struct {
	Provider          integration.ProviderCode
	ProviderAccountID string
	Scopes            []string
	RedirectURL       string
}

// IntegrationSummary is one row of the per-tenant integration listing
type IntegrationSummary struct {
	Provider          integration.ProviderCode
	DisplayName       string
	Configured        bool
	SyncEnabled       bool
	WebhookEnabled    bool
	ProviderAccountID string
	SiteID            string
	ErrorCount        int
	LastError         string
	LastErrorAt       *time.Time
}

// ---------------------------------------------------------------------------
// Health DTOs
// ---------------------------------------------------------------------------

// HealthStatus is the tri-state integration health classification
type HealthStatus string

const (
	// HealthStatusNotConfigured means no stored tokens exist
	HealthStatusNotConfigured HealthStatus = "not_configured"
	// HealthStatusHealthy means the stored credentials work
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusUnhealthy means the check or the credentials failed
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ErrorSummary condenses the credential's failure bookkeeping
type ErrorSummary struct {
	Message      string
	Count        int
	LastOccurred time.Time
}

// HealthReport is the full integration health view for one provider
type HealthReport struct {
	Provider integration.ProviderCode
	Status   HealthStatus
	// Connected reports whether token material is stored for the pair,
	// independent of whether it currently verifies as healthy
	Connected  bool
	TokenValid bool
	Message    string
	CheckedAt  time.Time
	// Errors is nil when the error counter is zero
	Errors *ErrorSummary
	// LastSync maps each concrete resource to its last successful sync
	LastSync map[integration.SyncResource]*time.Time
	// Config echoes the non-secret configuration flags
	Config HealthConfigEcho
}

// HealthConfigEcho mirrors the stored non-secret configuration
type HealthConfigEcho struct {
	SyncEnabled    bool
	WebhookEnabled bool
	Scopes         []string
	SiteID         string
}

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// TriggerInput carries the inputs for a manual or scheduled sync trigger
type TriggerInput struct {
	TenantID uuid.UUID
	Provider integration.ProviderCode
	Resource integration.SyncResource
	// Force runs the sync even when the credential has sync disabled
	Force bool
	// Filters are passed through to the ETL collaborator untouched
	Filters map[string]any
}

// TriggerResult is the outcome of a sync trigger. RunID is always set once
// a run row was opened, including on failure.
type TriggerResult struct {
	RunID   uuid.UUID
	Status  integration.SyncRunStatus
	Results []integration.ResourceResult
}
