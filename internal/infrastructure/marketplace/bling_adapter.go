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

// BlingAdapter implements the MarketplaceProvider port for the Bling ERP.
// Bling authenticates its token endpoint with HTTP Basic credentials rather
// than posting the client secret in the form body.
type BlingAdapter struct {
	config     *BlingConfig
	httpClient *http.Client
	tokens     integration.TokenSet
}

var _ integration.MarketplaceProvider = (*BlingAdapter)(nil)

// NewBlingAdapter creates a new Bling adapter with the given configuration
func NewBlingAdapter(config *BlingConfig) (*BlingAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BlingAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles
func (a *BlingAdapter) Code() integration.ProviderCode {
	return integration.ProviderCodeBling
}

// SetTokens hydrates the adapter with stored credentials
func (a *BlingAdapter) SetTokens(tokens integration.TokenSet) {
	a.tokens = tokens
}

// ---------------------------------------------------------------------------
// OAuth Operations
// ---------------------------------------------------------------------------

// BuildAuthorizationURL constructs the Bling consent URL
func (a *BlingAdapter) BuildAuthorizationURL(params integration.AuthorizeParams) (string, error) {
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", a.config.ClientID)
	values.Set("state", params.State)
	return a.config.AuthBaseURL + "/authorize?" + values.Encode(), nil
}

// ExchangeCode exchanges an authorization code for tokens
func (a *BlingAdapter) ExchangeCode(ctx context.Context, params integration.ExchangeParams) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", params.Code)
	return a.requestToken(ctx, form, integration.ErrExchangeRejected)
}

// RefreshTokens rotates the access token using the refresh token
func (a *BlingAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*integration.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return a.requestToken(ctx, form, integration.ErrRefreshRejected)
}

func (a *BlingAdapter) requestToken(ctx context.Context, form url.Values, rejected error) (*integration.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.AuthBaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("bling: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.config.ClientID, a.config.ClientSecret)

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
		// The body carries Bling's error code, never our credentials
		return nil, fmt.Errorf("%w: HTTP %d: %s", rejected, resp.StatusCode, string(body))
	}

	var tokenResp blingTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrProviderInvalidResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", integration.ErrProviderInvalidResponse)
	}

	return &integration.TokenGrant{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		Scopes:       normalizeScopes(tokenResp.Scope),
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// ---------------------------------------------------------------------------
// Health & Listings
// ---------------------------------------------------------------------------

// HealthCheck reads the company profile, the cheapest authenticated call
func (a *BlingAdapter) HealthCheck(ctx context.Context) integration.HealthCheckResult {
	now := time.Now()
	body, status, err := a.doGet(ctx, "/empresas/me/dados-basicos", nil)
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

	var profile blingCompanyResponse
	if err := json.Unmarshal(body, &profile); err != nil {
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

// ListOrders lists sales orders from Bling
func (a *BlingAdapter) ListOrders(ctx context.Context, page integration.ListPage) (*integration.OrderPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("pagina", strconv.Itoa(page.Offset/page.Limit+1))
	query.Set("limite", strconv.Itoa(page.Limit))

	body, status, err := a.doGet(ctx, "/pedidos/vendas", query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp blingOrderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order list: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.OrderPage{
		Orders:      make([]integration.OrderSummary, 0, len(resp.Data)),
		TotalCount:  resp.Total,
		HasNextPage: hasNextPage(page, resp.Total),
	}
	for _, o := range resp.Data {
		placedAt, _ := time.Parse("2006-01-02", o.Date)
		result.Orders = append(result.Orders, integration.OrderSummary{
			ProviderOrderID: strconv.FormatInt(o.ID, 10),
			Status:          strconv.Itoa(o.Situation.ID),
			Total:           decimal.NewFromFloat(o.Total),
			Currency:        "BRL",
			PlacedAt:        placedAt,
		})
	}
	return result, nil
}

// ListProducts lists products from Bling
func (a *BlingAdapter) ListProducts(ctx context.Context, page integration.ListPage) (*integration.ProductPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("pagina", strconv.Itoa(page.Offset/page.Limit+1))
	query.Set("limite", strconv.Itoa(page.Limit))

	body, status, err := a.doGet(ctx, "/produtos", query)
	if err != nil {
		return nil, err
	}
	if err := a.checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp blingProductListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse product list: %v", integration.ErrProviderInvalidResponse, err)
	}

	result := &integration.ProductPage{
		Products:    make([]integration.ProductSummary, 0, len(resp.Data)),
		TotalCount:  resp.Total,
		HasNextPage: hasNextPage(page, resp.Total),
	}
	for _, p := range resp.Data {
		result.Products = append(result.Products, integration.ProductSummary{
			ProviderProductID: strconv.FormatInt(p.ID, 10),
			SKU:               p.Code,
			Title:             p.Name,
			Price:             decimal.NewFromFloat(p.Price),
			Quantity:          p.Stock,
		})
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *BlingAdapter) doGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("bling: failed to create request: %w", err)
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

func (a *BlingAdapter) checkStatus(status int, body []byte) error {
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

type blingTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

type blingCompanyResponse struct {
	Data struct {
		ID    int64  `json:"id"`
		Name  string `json:"nome"`
		Email string `json:"email"`
	} `json:"data"`
}

type blingOrderListResponse struct {
	Data []struct {
		ID        int64   `json:"id"`
		Number    int64   `json:"numero"`
		Date      string  `json:"data"`
		Total     float64 `json:"total"`
		Situation struct {
			ID int `json:"id"`
		} `json:"situacao"`
	} `json:"data"`
	Total int64 `json:"total"`
}

type blingProductListResponse struct {
	Data []struct {
		ID    int64   `json:"id"`
		Name  string  `json:"nome"`
		Code  string  `json:"codigo"`
		Price float64 `json:"preco"`
		Stock int64   `json:"estoqueAtual"`
	} `json:"data"`
	Total int64 `json:"total"`
}
