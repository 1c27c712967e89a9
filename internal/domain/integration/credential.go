package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Resources
// ---------------------------------------------------------------------------

// SyncResource identifies a category of data pulled from a provider
type SyncResource string

const (
	// SyncResourceProducts covers catalog/listing data
	SyncResourceProducts SyncResource = "products"
	// SyncResourceOrders covers sales orders
	SyncResourceOrders SyncResource = "orders"
	// SyncResourceFinance covers settlement/finance data
	SyncResourceFinance SyncResource = "finance"
	// SyncResourceAll expands to every concrete resource
	SyncResourceAll SyncResource = "all"
)

// IsValid returns true if the resource is valid
func (r SyncResource) IsValid() bool {
	switch r {
	case SyncResourceProducts, SyncResourceOrders, SyncResourceFinance, SyncResourceAll:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncResource
func (r SyncResource) String() string {
	return string(r)
}

// Expand returns the concrete resources covered by this resource.
// "all" expands to products, orders and finance in that order.
func (r SyncResource) Expand() []SyncResource {
	if r == SyncResourceAll {
		return []SyncResource{SyncResourceProducts, SyncResourceOrders, SyncResourceFinance}
	}
	return []SyncResource{r}
}

// ---------------------------------------------------------------------------
// Credential Entity
// ---------------------------------------------------------------------------

// Credential is the per-tenant, per-provider integration record. Token fields
// hold ciphertext only; plaintext tokens exist in memory just long enough to
// be used and are never persisted or logged.
type Credential struct {
	// ID is the unique identifier of the credential record
	ID uuid.UUID
	// TenantID is the tenant this credential belongs to
	TenantID uuid.UUID
	// Provider identifies the external provider
	Provider ProviderCode
	// AccessTokenCiphertext is the encrypted access token blob
	AccessTokenCiphertext string
	// RefreshTokenCiphertext is the encrypted refresh token blob
	RefreshTokenCiphertext string
	// Scopes are the OAuth scopes granted at authorization time
	Scopes []string
	// ProviderAccountID is the external user/shop identifier
	ProviderAccountID string
	// SiteID is the provider sub-routing value (Meli site, Amazon region, Shopee shop)
	SiteID string
	// SyncEnabled gates sync triggers for this provider
	SyncEnabled bool
	// WebhookEnabled gates webhook-driven updates for this provider
	WebhookEnabled bool
	// ErrorCount is the number of consecutive failed operations
	ErrorCount int
	// LastError is the most recent failure description (never contains secrets)
	LastError string
	// LastErrorAt is when the most recent failure occurred
	LastErrorAt *time.Time
	// LastSyncProductsAt is when products were last synced successfully
	LastSyncProductsAt *time.Time
	// LastSyncOrdersAt is when orders were last synced successfully
	LastSyncOrdersAt *time.Time
	// LastSyncFinanceAt is when finance data was last synced successfully
	LastSyncFinanceAt *time.Time
	// CreatedAt is when the record was created
	CreatedAt time.Time
	// UpdatedAt is when the record was last updated
	UpdatedAt time.Time
}

// NewCredential creates a credential record from a completed OAuth exchange.
// Token arguments are already ciphertext.
func NewCredential(tenantID uuid.UUID, provider ProviderCode, accessCiphertext, refreshCiphertext string) (*Credential, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProvider
	}
	now := time.Now()
	return &Credential{
		ID:                     uuid.New(),
		TenantID:               tenantID,
		Provider:               provider,
		AccessTokenCiphertext:  accessCiphertext,
		RefreshTokenCiphertext: refreshCiphertext,
		SyncEnabled:            true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// IsConfigured returns true when the record holds stored tokens.
// A row with cleared token fields counts as not configured.
func (c *Credential) IsConfigured() bool {
	return c.AccessTokenCiphertext != ""
}

// RecordFailure notes a failed provider operation on the record
func (c *Credential) RecordFailure(message string, at time.Time) {
	c.ErrorCount++
	c.LastError = message
	c.LastErrorAt = &at
	c.UpdatedAt = at
}

// RecordSuccess clears the error bookkeeping after a successful operation
func (c *Credential) RecordSuccess() {
	c.ErrorCount = 0
	c.LastError = ""
	c.LastErrorAt = nil
	c.UpdatedAt = time.Now()
}

// MarkSynced stamps the per-resource last-sync time. The "all"
// pseudo-resource is not a valid target; callers expand it first.
func (c *Credential) MarkSynced(resource SyncResource, at time.Time) error {
	switch resource {
	case SyncResourceProducts:
		c.LastSyncProductsAt = &at
	case SyncResourceOrders:
		c.LastSyncOrdersAt = &at
	case SyncResourceFinance:
		c.LastSyncFinanceAt = &at
	default:
		return ErrInvalidResource
	}
	c.UpdatedAt = at
	return nil
}

// LastSyncAt returns the last successful sync time for a concrete resource
func (c *Credential) LastSyncAt(resource SyncResource) *time.Time {
	switch resource {
	case SyncResourceProducts:
		return c.LastSyncProductsAt
	case SyncResourceOrders:
		return c.LastSyncOrdersAt
	case SyncResourceFinance:
		return c.LastSyncFinanceAt
	default:
		return nil
	}
}

// Disconnect clears the stored tokens and account binding while keeping the
// row, so history survives and the provider reads as not configured.
func (c *Credential) Disconnect() {
	c.AccessTokenCiphertext = ""
	c.RefreshTokenCiphertext = ""
	c.ProviderAccountID = ""
	c.Scopes = nil
	c.SyncEnabled = false
	c.WebhookEnabled = false
	c.UpdatedAt = time.Now()
}
