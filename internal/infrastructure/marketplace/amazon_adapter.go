package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercehub/backend/internal/domain/integration"
)

// AmazonAdapter implements the MarketplaceProvider port for Amazon Selling
// Partner. The consent screen is region-specific (NA/EU/FE) and the token
// exchange goes through the region-independent LWA endpoint; the selling
// partner id arrives in the token response.
type AmazonAdapter struct {
	config     *AmazonConfig
	httpClient *http.Client
	tokens     integration.TokenSet
}

var _ integration.MarketplaceProvider = (*AmazonAdapter)(nil)

// NewAmazonAdapter creates a new Amazon adapter
func NewAmazonAdapter(config *AmazonConfig) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AmazonAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles
func (a *AmazonAdapter) Code() integration.ProviderCode {
	return integration.ProviderCodeAmazon
}

// SetTokens hydrates the adapter with stored credentials. The stored site id
// is the selling region.
func (a *AmazonAdapter) SetTokens(tokens integration.TokenSet) {
	a.tokens = tokens
}

// region returns the hydrated selling region, defaulting to NA
func (a *AmazonAdapter) region() string {
	if a.tokens.SiteID != "" {
		return a.tokens.SiteID
	}
	return string(integration.AmazonRegionNA)
}

// ---------------------------------------------------------------------------
// OAuth Operations
// ---------------------------------------------------------------------------

// BuildAuthorizationURL constructs the region-specific consent URL.
// The region enum is closed; unknown values are rejected locally.
func (a *AmazonAdapter) BuildAuthorizationURL(params integration.AuthorizeParams) (string, error) {
	if !params.Region.IsValid() {
		return "", fmt.Errorf("%w: %q", integration.ErrInvalidRegion, string(params.Region))
	}
	base, ok := a.config.consentBaseURL(params.Region.String())
	if !ok {
		return "", fmt.Errorf("%w: %q", integration.ErrInvalidRegion, string(params.Region))
	}

	values := url.Values{}
	values.Set("application_id", a.config.ApplicationID)
	values.Set("state", params.State)
	values.Set("redirect_uri", a.config.RedirectURI)
	return base + "/apps/authorize/consent?" + values.Encode(), nil
}

// ExchangeCode exchanges an authorization code for tokens via LWA
func (a *AmazonAdapter) ExchangeCode(ctx context.Context, params integration.ExchangeParams) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", params.Code)
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("redirect_uri", a.config.RedirectURI)
	return a.requestToken(ctx, form, integration.ErrExchangeRejected)
}

// RefreshTokens rotates the access token using the refresh token
func (a *AmazonAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	return a.requestToken(ctx, form, integration.ErrRefreshRejected)
}

func (a *AmazonAdapter) requestToken(ctx context.Context, form url.Values, rejected error) (*integration.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", rejected, resp.StatusCode, string(body))
	}

	var tokenResp amazonTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrProviderInvalidResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", integration.ErrProviderInvalidResponse)
	}

	return &integration.TokenGrant{
		AccessToken:       tokenResp.AccessToken,
		RefreshToken:      tokenResp.RefreshToken,
		ProviderAccountID: tokenResp.SellingPartnerID,
		ExpiresIn:         tokenResp.ExpiresIn,
	}, nil
}

// ---------------------------------------------------------------------------
// Health & Listings
// ---------------------------------------------------------------------------

// HealthCheck reads the marketplace participations list
func (a *AmazonAdapter) HealthCheck(ctx context.Context) integration.HealthCheckResult {
	now := time.Now()
	_, status, err := a.doGet(ctx, "/sellers/v1/marketplaceParticipations", nil)
	if err != nil {
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: false,
			Message:    "provider unreachable",
			LastCheck:  now,
		}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: false,
			Message:    "access token rejected",
			LastCheck:  now,
		}
	}
	if status >= 400 {
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: true,
			Message:    fmt.Sprintf("provider returned HTTP %d", status),
			LastCheck:  now,
		}
	}
	return integration.HealthCheckResult{
		Status:     integration.HealthStateHealthy,
		TokenValid: true,
		LastCheck:  now,
	}
}

// ListOrders lists orders in the hydrated region
func (a *AmazonAdapter) ListOrders(ctx context.Context, page integration.ListPage) (*integration.OrderPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("Offset", strconv.Itoa(page.Offset))
	query.Set("MaxResultsPerPage", strconv.Itoa(page.Limit))

	body, status, err := a.doGet(ctx, "/orders/v0/orders", query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp amazonOrderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order list: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.OrderPage{
		Orders:      make([]integration.OrderSummary, 0, len(resp.Payload.Orders)),
		TotalCount:  resp.Payload.TotalCount,
		HasNextPage: hasNextPage(page, resp.Payload.TotalCount),
	}
	for _, o := range resp.Payload.Orders {
		placedAt, _ := time.Parse(time.RFC3339, o.PurchaseDate)
		total, _ := decimal.NewFromString(o.OrderTotal.Amount)
		result.Orders = append(result.Orders, integration.OrderSummary{
			ProviderOrderID: o.AmazonOrderID,
			Status:          o.OrderStatus,
			Total:           total,
			Currency:        o.OrderTotal.CurrencyCode,
			PlacedAt:        placedAt,
		})
	}
	return result, nil
}

// ListProducts lists the seller's catalog items in the hydrated region
func (a *AmazonAdapter) ListProducts(ctx context.Context, page integration.ListPage) (*integration.ProductPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("pageSize", strconv.Itoa(page.Limit))

	body, status, err := a.doGet(ctx, "/listings/2021-08-01/items", query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp amazonListingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse listings: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.ProductPage{
		Products:    make([]integration.ProductSummary, 0, len(resp.Items)),
		TotalCount:  resp.NumberOfResults,
		HasNextPage: hasNextPage(page, resp.NumberOfResults),
	}
	for _, item := range resp.Items {
		price, _ := decimal.NewFromString(item.Price)
		result.Products = append(result.Products, integration.ProductSummary{
			ProviderProductID: item.ASIN,
			SKU:               item.SKU,
			Title:             item.Title,
			Price:             price,
			Quantity:          item.Quantity,
		})
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *AmazonAdapter) doGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	base, ok := a.config.apiBaseURL(a.region())
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", integration.ErrInvalidRegion, a.region())
	}
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("amazon: failed to create request: %w", err)
	}
	req.Header.Set("x-amz-access-token", a.tokens.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (a *AmazonAdapter) checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderAuthFailed, status)
	case status >= 400:
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrProviderRequestFailed, status, string(body))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Response Types
// ---------------------------------------------------------------------------

type amazonTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	SellingPartnerID string `json:"selling_partner_id"`
}

type amazonOrderListResponse struct {
	Payload struct {
		Orders []struct {
			AmazonOrderID string `json:"AmazonOrderId"`
			OrderStatus   string `json:"OrderStatus"`
			PurchaseDate  string `json:"PurchaseDate"`
			OrderTotal    struct {
				CurrencyCode string `json:"CurrencyCode"`
				Amount       string `json:"Amount"`
			} `json:"OrderTotal"`
		} `json:"Orders"`
		TotalCount int64 `json:"TotalCount"`
	} `json:"payload"`
}

type amazonListingsResponse struct {
	NumberOfResults int64 `json:"numberOfResults"`
	Items           []struct {
		ASIN     string `json:"asin"`
		SKU      string `json:"sku"`
		Title    string `json:"title"`
		Price    string `json:"price"`
		Quantity int64  `json:"quantity"`
	} `json:"items"`
}
