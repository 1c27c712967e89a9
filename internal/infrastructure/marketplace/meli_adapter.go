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

// MeliAdapter implements the MarketplaceProvider port for Mercado Livre.
// The consent screen is site-specific (MLB, MLA, ...) while the API itself
// is shared; the adapter carries the numeric user id as the account id.
type MeliAdapter struct {
	config     *MeliConfig
	httpClient *http.Client
	tokens     integration.TokenSet
}

var _ integration.MarketplaceProvider = (*MeliAdapter)(nil)

// NewMeliAdapter creates a new Mercado Livre adapter
func NewMeliAdapter(config *MeliConfig) (*MeliAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MeliAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles
func (a *MeliAdapter) Code() integration.ProviderCode {
	return integration.ProviderCodeMercadoLivre
}

// SetTokens hydrates the adapter with stored credentials
func (a *MeliAdapter) SetTokens(tokens integration.TokenSet) {
	a.tokens = tokens
}

// ---------------------------------------------------------------------------
// OAuth Operations
// ---------------------------------------------------------------------------

// BuildAuthorizationURL constructs the site-specific consent URL.
// The site enum is closed; unknown values are rejected here rather than
// producing a redirect to a host we never registered.
func (a *MeliAdapter) BuildAuthorizationURL(params integration.AuthorizeParams) (string, error) {
	if !params.Site.IsValid() {
		return "", fmt.Errorf("%w: %q", integration.ErrInvalidSite, string(params.Site))
	}
	base, ok := a.config.authBaseURL(params.Site.String())
	if !ok {
		return "", fmt.Errorf("%w: %q", integration.ErrInvalidSite, string(params.Site))
	}

	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", a.config.ClientID)
	values.Set("redirect_uri", a.config.RedirectURI)
	values.Set("state", params.State)
	return base + "/authorization?" + values.Encode(), nil
}

// ExchangeCode exchanges an authorization code for tokens
func (a *MeliAdapter) ExchangeCode(ctx context.Context, params integration.ExchangeParams) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("code", params.Code)
	form.Set("redirect_uri", a.config.RedirectURI)
	return a.requestToken(ctx, form, integration.ErrExchangeRejected)
}

// RefreshTokens rotates the access token using the refresh token
func (a *MeliAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("refresh_token", refreshToken)
	return a.requestToken(ctx, form, integration.ErrRefreshRejected)
}

func (a *MeliAdapter) requestToken(ctx context.Context, form url.Values, rejected error) (*integration.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("mercadolivre: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

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

	var tokenResp meliTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrProviderInvalidResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", integration.ErrProviderInvalidResponse)
	}

	return &integration.TokenGrant{
		AccessToken:       tokenResp.AccessToken,
		RefreshToken:      tokenResp.RefreshToken,
		Scopes:            normalizeScopes(tokenResp.Scope),
		ProviderAccountID: strconv.FormatInt(tokenResp.UserID, 10),
		ExpiresIn:         tokenResp.ExpiresIn,
	}, nil
}

// ---------------------------------------------------------------------------
// Health & Listings
// ---------------------------------------------------------------------------

// HealthCheck reads the authenticated user profile
func (a *MeliAdapter) HealthCheck(ctx context.Context) integration.HealthCheckResult {
	now := time.Now()
	body, status, err := a.doGet(ctx, "/users/me", nil)
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

	var user meliUserResponse
	if err := json.Unmarshal(body, &user); err != nil || user.ID == 0 {
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: true,
			Message:    "invalid provider response",
			LastCheck:  now,
		}
	}
	return integration.HealthCheckResult{
		Status:     integration.HealthStateHealthy,
		TokenValid: true,
		LastCheck:  now,
	}
}

// ListOrders lists orders sold by the connected account
func (a *MeliAdapter) ListOrders(ctx context.Context, page integration.ListPage) (*integration.OrderPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("seller", a.tokens.ProviderAccountID)
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("limit", strconv.Itoa(page.Limit))
	query.Set("sort", "date_desc")

	body, status, err := a.doGet(ctx, "/orders/search", query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp meliOrderSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order search: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.OrderPage{
		Orders:      make([]integration.OrderSummary, 0, len(resp.Results)),
		TotalCount:  resp.Paging.Total,
		HasNextPage: hasNextPage(page, resp.Paging.Total),
	}
	for _, o := range resp.Results {
		placedAt, _ := time.Parse(time.RFC3339, o.DateCreated)
		result.Orders = append(result.Orders, integration.OrderSummary{
			ProviderOrderID: strconv.FormatInt(o.ID, 10),
			Status:          o.Status,
			Total:           decimal.NewFromFloat(o.TotalAmount),
			Currency:        o.CurrencyID,
			PlacedAt:        placedAt,
		})
	}
	return result, nil
}

// ListProducts lists the connected account's active listings
func (a *MeliAdapter) ListProducts(ctx context.Context, page integration.ListPage) (*integration.ProductPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("limit", strconv.Itoa(page.Limit))

	path := "/users/" + a.tokens.ProviderAccountID + "/items/search"
	body, status, err := a.doGet(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp meliItemSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse item search: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.ProductPage{
		Products:    make([]integration.ProductSummary, 0, len(resp.Results)),
		TotalCount:  resp.Paging.Total,
		HasNextPage: hasNextPage(page, resp.Paging.Total),
	}
	for _, item := range resp.Results {
		result.Products = append(result.Products, integration.ProductSummary{
			ProviderProductID: item.ID,
			SKU:               item.SellerSKU,
			Title:             item.Title,
			Price:             decimal.NewFromFloat(item.Price),
			Quantity:          item.AvailableQuantity,
		})
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *MeliAdapter) doGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("mercadolivre: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.tokens.AccessToken)
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

func (a *MeliAdapter) checkStatus(status int, body []byte) error {
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

type meliTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

type meliUserResponse struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	SiteID   string `json:"site_id"`
}

type meliOrderSearchResponse struct {
	Results []struct {
		ID          int64   `json:"id"`
		Status      string  `json:"status"`
		DateCreated string  `json:"date_created"`
		TotalAmount float64 `json:"total_amount"`
		CurrencyID  string  `json:"currency_id"`
	} `json:"results"`
	Paging struct {
		Total  int64 `json:"total"`
		Offset int64 `json:"offset"`
		Limit  int64 `json:"limit"`
	} `json:"paging"`
}

type meliItemSearchResponse struct {
	Results []struct {
		ID                string  `json:"id"`
		Title             string  `json:"title"`
		SellerSKU         string  `json:"seller_custom_field"`
		Price             float64 `json:"price"`
		AvailableQuantity int64   `json:"available_quantity"`
	} `json:"results"`
	Paging struct {
		Total  int64 `json:"total"`
		Offset int64 `json:"offset"`
		Limit  int64 `json:"limit"`
	} `json:"paging"`
}
