package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercehub/backend/internal/domain/integration"
)

// ShopeeAdapter implements the MarketplaceProvider port for Shopee. Shopee
// is the one provider whose callback carries an extra identifier: the
// authorization code alone is not enough, the shop_id delivered alongside it
// is required for the exchange and for every subsequent shop-level call.
type ShopeeAdapter struct {
	config     *ShopeeConfig
	httpClient *http.Client
	tokens     integration.TokenSet

	// now is injectable so signature timestamps are testable
	now func() time.Time
}

var _ integration.MarketplaceProvider = (*ShopeeAdapter)(nil)

// NewShopeeAdapter creates a new Shopee adapter
func NewShopeeAdapter(config *ShopeeConfig) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopeeAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now: time.Now,
	}, nil
}

// Code returns the provider code this adapter handles
func (a *ShopeeAdapter) Code() integration.ProviderCode {
	return integration.ProviderCodeShopee
}

// SetTokens hydrates the adapter with stored credentials. The stored
// provider account id is the shop id.
func (a *ShopeeAdapter) SetTokens(tokens integration.TokenSet) {
	a.tokens = tokens
}

// ---------------------------------------------------------------------------
// OAuth Operations
// ---------------------------------------------------------------------------

// BuildAuthorizationURL constructs the partner-signed consent URL. The state
// rides on the redirect URL because Shopee does not forward a state
// parameter of its own.
func (a *ShopeeAdapter) BuildAuthorizationURL(params integration.AuthorizeParams) (string, error) {
	const path = "/api/v2/shop/auth_partner"
	timestamp := a.now().Unix()

	redirect := a.config.RedirectURI
	if params.State != "" {
		sep := "?"
		if u, err := url.Parse(redirect); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		redirect += sep + "state=" + url.QueryEscape(params.State)
	}

	values := url.Values{}
	values.Set("partner_id", strconv.FormatInt(a.config.PartnerID, 10))
	values.Set("timestamp", strconv.FormatInt(timestamp, 10))
	values.Set("sign", a.config.Sign(path, timestamp))
	values.Set("redirect", redirect)
	return a.config.APIBaseURL + path + "?" + values.Encode(), nil
}

// ExchangeCode exchanges the code plus shop_id for tokens. A missing
// shop_id fails before any network call.
func (a *ShopeeAdapter) ExchangeCode(ctx context.Context, params integration.ExchangeParams) (*integration.TokenGrant, error) {
	if params.ShopID == "" {
		return nil, integration.ErrMissingShopID
	}
	shopID, err := strconv.ParseInt(params.ShopID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: shop id must be numeric", integration.ErrMissingShopID)
	}

	const path = "/api/v2/auth/token/get"
	payload := map[string]any{
		"code":       params.Code,
		"shop_id":    shopID,
		"partner_id": a.config.PartnerID,
	}
	tokenResp, err := a.requestToken(ctx, path, payload, integration.ErrExchangeRejected)
	if err != nil {
		return nil, err
	}

	return &integration.TokenGrant{
		AccessToken:       tokenResp.AccessToken,
		RefreshToken:      tokenResp.RefreshToken,
		ProviderAccountID: params.ShopID,
		ExpiresIn:         tokenResp.ExpireIn,
	}, nil
}

// RefreshTokens rotates the access token using the refresh token
func (a *ShopeeAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*integration.TokenGrant, error) {
	shopID, err := strconv.ParseInt(a.tokens.ProviderAccountID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: adapter not hydrated with a shop id", integration.ErrMissingShopID)
	}

	const path = "/api/v2/auth/access_token/get"
	payload := map[string]any{
		"refresh_token": refreshToken,
		"shop_id":       shopID,
		"partner_id":    a.config.PartnerID,
	}
	tokenResp, err := a.requestToken(ctx, path, payload, integration.ErrRefreshRejected)
	if err != nil {
		return nil, err
	}

	return &integration.TokenGrant{
		AccessToken:       tokenResp.AccessToken,
		RefreshToken:      tokenResp.RefreshToken,
		ProviderAccountID: a.tokens.ProviderAccountID,
		ExpiresIn:         tokenResp.ExpireIn,
	}, nil
}

func (a *ShopeeAdapter) requestToken(ctx context.Context, path string, payload map[string]any, rejected error) (*shopeeTokenResponse, error) {
	timestamp := a.now().Unix()
	query := url.Values{}
	query.Set("partner_id", strconv.FormatInt(a.config.PartnerID, 10))
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("sign", a.config.Sign(path, timestamp))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to encode request: %w", err)
	}

	endpoint := a.config.APIBaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", rejected, resp.StatusCode, string(respBody))
	}

	var tokenResp shopeeTokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrProviderInvalidResponse, err)
	}
	// Shopee reports rejections inside a 200 envelope
	if tokenResp.Error != "" {
		return nil, fmt.Errorf("%w: %s - %s", rejected, tokenResp.Error, tokenResp.Message)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", integration.ErrProviderInvalidResponse)
	}
	return &tokenResp, nil
}

// ---------------------------------------------------------------------------
// Health & Listings
// ---------------------------------------------------------------------------

// HealthCheck reads the shop profile
func (a *ShopeeAdapter) HealthCheck(ctx context.Context) integration.HealthCheckResult {
	now := time.Now()
	body, status, err := a.doShopGet(ctx, "/api/v2/shop/get_shop_info", nil)
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

	var envelope shopeeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: true,
			Message:    "invalid provider response",
			LastCheck:  now,
		}
	}
	if envelope.Error != "" {
		tokenValid := !shopeeAuthError(envelope.Error)
		return integration.HealthCheckResult{
			Status:     integration.HealthStateUnhealthy,
			TokenValid: tokenValid,
			Message:    fmt.Sprintf("provider error %s", envelope.Error),
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

// shopeeAuthError reports whether a Shopee error code means the token is bad
func shopeeAuthError(code string) bool {
	switch code {
	case "error_auth", "invalid_access_token", "invalid_acess_token", "access_token_expired":
		return true
	default:
		return false
	}
}

// ListOrders lists orders for the connected shop
func (a *ShopeeAdapter) ListOrders(ctx context.Context, page integration.ListPage) (*integration.OrderPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("page_size", strconv.Itoa(page.Limit))
	query.Set("order_status", "ALL")

	body, status, err := a.doShopGet(ctx, "/api/v2/order/get_order_list", query)
	if err != nil {
		return nil, err
	}

	var resp shopeeOrderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order list: %v", integration.ErrProviderInvalidResponse, err)
	}
	if err := a.checkEnvelope(status, resp.shopeeEnvelope); err != nil {
		return nil, err
	}

	result := &integration.OrderPage{
		Orders:      make([]integration.OrderSummary, 0, len(resp.Response.OrderList)),
		TotalCount:  resp.Response.TotalCount,
		HasNextPage: hasNextPage(page, resp.Response.TotalCount),
	}
	for _, o := range resp.Response.OrderList {
		total, _ := decimal.NewFromString(o.TotalAmount)
		result.Orders = append(result.Orders, integration.OrderSummary{
			ProviderOrderID: o.OrderSN,
			Status:          o.OrderStatus,
			Total:           total,
			Currency:        o.Currency,
			PlacedAt:        time.Unix(o.CreateTime, 0),
		})
	}
	return result, nil
}

// ListProducts lists items for the connected shop
func (a *ShopeeAdapter) ListProducts(ctx context.Context, page integration.ListPage) (*integration.ProductPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("page_size", strconv.Itoa(page.Limit))
	query.Set("item_status", "NORMAL")

	body, status, err := a.doShopGet(ctx, "/api/v2/product/get_item_list", query)
	if err != nil {
		return nil, err
	}

	var resp shopeeItemListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse item list: %v", integration.ErrProviderInvalidResponse, err)
	}
	if err := a.checkEnvelope(status, resp.shopeeEnvelope); err != nil {
		return nil, err
	}

	result := &integration.ProductPage{
		Products:    make([]integration.ProductSummary, 0, len(resp.Response.Items)),
		TotalCount:  resp.Response.TotalCount,
		HasNextPage: hasNextPage(page, resp.Response.TotalCount),
	}
	for _, item := range resp.Response.Items {
		price, _ := decimal.NewFromString(item.Price)
		result.Products = append(result.Products, integration.ProductSummary{
			ProviderProductID: strconv.FormatInt(item.ItemID, 10),
			SKU:               item.ItemSKU,
			Title:             item.ItemName,
			Price:             price,
			Quantity:          item.Stock,
		})
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doShopGet performs a shop-level GET: the signature covers the access token
// and shop id in addition to the public base string.
func (a *ShopeeAdapter) doShopGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	timestamp := a.now().Unix()
	if query == nil {
		query = url.Values{}
	}
	query.Set("partner_id", strconv.FormatInt(a.config.PartnerID, 10))
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("access_token", a.tokens.AccessToken)
	query.Set("shop_id", a.tokens.ProviderAccountID)
	query.Set("sign", a.config.Sign(path, timestamp, a.tokens.AccessToken, a.tokens.ProviderAccountID))

	endpoint := a.config.APIBaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("shopee: failed to create request: %w", err)
	}

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

func (a *ShopeeAdapter) checkEnvelope(status int, envelope shopeeEnvelope) error {
	if envelope.Error != "" {
		if shopeeAuthError(envelope.Error) {
			return fmt.Errorf("%w: %s", integration.ErrProviderAuthFailed, envelope.Error)
		}
		return fmt.Errorf("%w: %s - %s", integration.ErrProviderRequestFailed, envelope.Error, envelope.Message)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderAuthFailed, status)
	}
	if status >= 400 {
		return fmt.Errorf("%w: HTTP %d", integration.ErrProviderRequestFailed, status)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Response Types
// ---------------------------------------------------------------------------

// shopeeEnvelope is the common wrapper on every Shopee response
type shopeeEnvelope struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

type shopeeTokenResponse struct {
	shopeeEnvelope
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}

type shopeeOrderListResponse struct {
	shopeeEnvelope
	Response struct {
		OrderList []struct {
			OrderSN     string `json:"order_sn"`
			OrderStatus string `json:"order_status"`
			TotalAmount string `json:"total_amount"`
			Currency    string `json:"currency"`
			CreateTime  int64  `json:"create_time"`
		} `json:"order_list"`
		TotalCount int64 `json:"total_count"`
		More       bool  `json:"more"`
	} `json:"response"`
}

type shopeeItemListResponse struct {
	shopeeEnvelope
	Response struct {
		Items []struct {
			ItemID   int64  `json:"item_id"`
			ItemName string `json:"item_name"`
			ItemSKU  string `json:"item_sku"`
			Price    string `json:"price"`
			Stock    int64  `json:"stock"`
		} `json:"item"`
		TotalCount int64 `json:"total_count"`
	} `json:"response"`
}
