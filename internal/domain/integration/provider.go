package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// Provider errors
	ErrInvalidProvider         = errors.New("integration: invalid provider code")
	ErrNotConfigured           = errors.New("integration: provider not configured")
	ErrProviderUnavailable     = errors.New("integration: provider temporarily unavailable")
	ErrProviderRequestFailed   = errors.New("integration: provider request failed")
	ErrProviderInvalidResponse = errors.New("integration: invalid provider response")
	ErrProviderAuthFailed      = errors.New("integration: provider authentication failed")

	// OAuth flow errors
	ErrAuthorizationDenied = errors.New("integration: authorization denied by user")
	ErrExchangeRejected    = errors.New("integration: authorization code exchange rejected")
	ErrRefreshRejected     = errors.New("integration: token refresh rejected")
	ErrMissingShopID       = errors.New("integration: shop id is required for this provider")
	ErrInvalidSite         = errors.New("integration: invalid marketplace site code")
	ErrInvalidRegion       = errors.New("integration: invalid marketplace region code")

	// Credential errors
	ErrCredentialNotFound = errors.New("integration: credential record not found")
	ErrPersistenceFailed  = errors.New("integration: credential persistence failed")
	ErrInvalidTenantID    = errors.New("integration: invalid tenant ID")

	// Sync errors
	ErrSyncDisabled    = errors.New("integration: sync is disabled for this provider")
	ErrInvalidResource = errors.New("integration: invalid sync resource")
	ErrRunNotFound     = errors.New("integration: sync run not found")
	ErrRunClosed       = errors.New("integration: sync run already closed")
)

// ---------------------------------------------------------------------------
// ProviderCode represents an external provider integrated via OAuth
// ---------------------------------------------------------------------------

// ProviderCode represents an external provider integrated via OAuth
type ProviderCode string

const (
	// ProviderCodeBling represents the Bling ERP system
	ProviderCodeBling ProviderCode = "BLING"
	// ProviderCodeMercadoLivre represents the Mercado Livre marketplace
	ProviderCodeMercadoLivre ProviderCode = "MERCADO_LIVRE"
	// ProviderCodeShopee represents the Shopee marketplace
	ProviderCodeShopee ProviderCode = "SHOPEE"
	// ProviderCodeAmazon represents the Amazon Selling Partner marketplace
	ProviderCodeAmazon ProviderCode = "AMAZON"
)

// IsValid returns true if the provider code is valid
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderCodeBling, ProviderCodeMercadoLivre, ProviderCodeShopee, ProviderCodeAmazon:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// IsERP returns true if the provider is an ERP system rather than a sales channel
func (c ProviderCode) IsERP() bool {
	return c == ProviderCodeBling
}

// DisplayName returns a human-readable name for the provider
func (c ProviderCode) DisplayName() string {
	switch c {
	case ProviderCodeBling:
		return "Bling ERP"
	case ProviderCodeMercadoLivre:
		return "Mercado Livre"
	case ProviderCodeShopee:
		return "Shopee"
	case ProviderCodeAmazon:
		return "Amazon"
	default:
		return string(c)
	}
}

// AllProviderCodes returns every supported provider code
func AllProviderCodes() []ProviderCode {
	return []ProviderCode{
		ProviderCodeBling,
		ProviderCodeMercadoLivre,
		ProviderCodeShopee,
		ProviderCodeAmazon,
	}
}

// ---------------------------------------------------------------------------
// Provider routing sub-parameters
// ---------------------------------------------------------------------------

// MeliSite represents a Mercado Livre national site
type MeliSite string

const (
	// MeliSiteBrazil is the Brazilian site (mercadolivre.com.br)
	MeliSiteBrazil MeliSite = "MLB"
	// MeliSiteArgentina is the Argentinian site
	MeliSiteArgentina MeliSite = "MLA"
	// MeliSiteMexico is the Mexican site
	MeliSiteMexico MeliSite = "MLM"
	// MeliSiteChile is the Chilean site
	MeliSiteChile MeliSite = "MLC"
	// MeliSiteColombia is the Colombian site
	MeliSiteColombia MeliSite = "MCO"
)

// IsValid returns true if the site code is valid
func (s MeliSite) IsValid() bool {
	switch s {
	case MeliSiteBrazil, MeliSiteArgentina, MeliSiteMexico, MeliSiteChile, MeliSiteColombia:
		return true
	default:
		return false
	}
}

// String returns the string representation of MeliSite
func (s MeliSite) String() string {
	return string(s)
}

// AmazonRegion represents an Amazon Selling Partner region
type AmazonRegion string

const (
	// AmazonRegionNA is North America
	AmazonRegionNA AmazonRegion = "NA"
	// AmazonRegionEU is Europe
	AmazonRegionEU AmazonRegion = "EU"
	// AmazonRegionFE is Far East
	AmazonRegionFE AmazonRegion = "FE"
)

// IsValid returns true if the region code is valid
func (r AmazonRegion) IsValid() bool {
	switch r {
	case AmazonRegionNA, AmazonRegionEU, AmazonRegionFE:
		return true
	default:
		return false
	}
}

// String returns the string representation of AmazonRegion
func (r AmazonRegion) String() string {
	return string(r)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// AuthorizeParams carries the inputs for authorization URL construction.
// Site applies to Mercado Livre only; Region applies to Amazon only.
type AuthorizeParams struct {
	// State is the encoded opaque state round-tripped through the provider
	State string
	// Site selects the Mercado Livre national site
	Site MeliSite
	// Region selects the Amazon selling region
	Region AmazonRegion
}

// ExchangeParams carries the inputs for the code-for-token exchange.
// ShopID applies to Shopee only, which includes it in the callback redirect.
type ExchangeParams struct {
	// Code is the single-use authorization code issued by the provider
	Code string
	// ShopID is the shop identifier delivered alongside the code (Shopee)
	ShopID string
}

// TokenGrant is the normalized result of a token exchange or refresh.
// Raw field names differ per provider API; adapters map them here.
type TokenGrant struct {
	// AccessToken is the bearer token for authenticated calls
	AccessToken string
	// RefreshToken is the long-lived token used to rotate the access token
	RefreshToken string
	// Scopes are the OAuth scopes granted at authorization time
	Scopes []string
	// ProviderAccountID is the external user/shop identifier (not secret)
	ProviderAccountID string
	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64
}

// TokenSet hydrates an adapter from previously stored (decrypted) credentials
// so it can make authenticated calls without repeating the OAuth dance.
type TokenSet struct {
	AccessToken       string
	RefreshToken      string
	ProviderAccountID string
	// SiteID is the stored sub-routing value (Meli site, Amazon region)
	SiteID string
}

// HealthState is the adapter-level health classification
type HealthState string

const (
	// HealthStateHealthy indicates the stored credentials work
	HealthStateHealthy HealthState = "healthy"
	// HealthStateUnhealthy indicates the credentials were rejected or the check failed
	HealthStateUnhealthy HealthState = "unhealthy"
)

// HealthCheckResult is the outcome of one cheap authenticated read against
// the provider. Auth failures are classified, never returned as errors, so
// callers can render status without exception handling.
type HealthCheckResult struct {
	Status     HealthState
	TokenValid bool
	Message    string
	LastCheck  time.Time
}

// ListPage is the offset/limit pagination input for resource listings
type ListPage struct {
	Offset int
	Limit  int
}

// OrderSummary is a normalized order row from a provider listing
type OrderSummary struct {
	ProviderOrderID string
	Status          string
	Total           decimal.Decimal
	Currency        string
	PlacedAt        time.Time
}

// OrderPage is one page of a provider order listing.
// HasNextPage is derived from the provider's total count, never from
// payload-size heuristics.
type OrderPage struct {
	Orders      []OrderSummary
	TotalCount  int64
	HasNextPage bool
}

// ProductSummary is a normalized product row from a provider listing
type ProductSummary struct {
	ProviderProductID string
	SKU               string
	Title             string
	Price             decimal.Decimal
	Quantity          int64
}

// ProductPage is one page of a provider product listing
type ProductPage struct {
	Products    []ProductSummary
	TotalCount  int64
	HasNextPage bool
}

// ---------------------------------------------------------------------------
// MarketplaceProvider Port Interface
// ---------------------------------------------------------------------------

// MarketplaceProvider defines the port interface for external providers.
// It follows the Ports & Adapters pattern: the interface lives in the domain
// layer and concrete implementations (Bling, Mercado Livre, Shopee, Amazon)
// live in the infrastructure layer. All providers present this one capability
// surface; only adapter internals encode provider quirks.
type MarketplaceProvider interface {
	// Code returns the provider code this adapter handles
	Code() ProviderCode

	// BuildAuthorizationURL constructs the provider authorize URL seeded with
	// the given state. Deterministic, no network call.
	BuildAuthorizationURL(params AuthorizeParams) (string, error)

	// ExchangeCode exchanges a single-use authorization code for tokens in one
	// network round-trip. Codes expire quickly upstream, so callers must not
	// buffer or retry this step; a rejection wraps ErrExchangeRejected with
	// the provider's raw error body.
	ExchangeCode(ctx context.Context, params ExchangeParams) (*TokenGrant, error)

	// RefreshTokens rotates the access token using the given refresh token
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// SetTokens hydrates the adapter with previously stored credentials
	SetTokens(tokens TokenSet)

	// HealthCheck makes one cheap authenticated read and classifies the result
	HealthCheck(ctx context.Context) HealthCheckResult

	// ListOrders lists orders with offset/limit pagination
	ListOrders(ctx context.Context, page ListPage) (*OrderPage, error)

	// ListProducts lists products with offset/limit pagination
	ListProducts(ctx context.Context, page ListPage) (*ProductPage, error)
}

// ProviderRegistry yields provider adapters by code.
// Implementations return a fresh adapter instance on every call so that
// SetTokens hydration stays scoped to one request.
type ProviderRegistry interface {
	// Provider returns a new adapter for the given code
	Provider(code ProviderCode) (MarketplaceProvider, error)

	// Codes returns the codes of all registered providers
	Codes() []ProviderCode
}
