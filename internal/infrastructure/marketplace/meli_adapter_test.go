package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercehub/backend/internal/domain/integration"
)

func newMeliTestAdapter(t *testing.T, server *httptest.Server) *MeliAdapter {
	t.Helper()
	cfg := NewMeliConfig("app-1", "secret-1", "https://hub.example.com/callback")
	if server != nil {
		cfg.APIBaseURL = server.URL
	}
	adapter, err := NewMeliAdapter(cfg)
	require.NoError(t, err)
	return adapter
}

func TestMeliAdapter_BuildAuthorizationURL(t *testing.T) {
	adapter := newMeliTestAdapter(t, nil)

	tests := []struct {
		site     integration.MeliSite
		wantHost string
	}{
		{integration.MeliSiteBrazil, "https://auth.mercadolivre.com.br"},
		{integration.MeliSiteArgentina, "https://auth.mercadolibre.com.ar"},
		{integration.MeliSiteMexico, "https://auth.mercadolibre.com.mx"},
	}

	for _, tt := range tests {
		t.Run(string(tt.site), func(t *testing.T) {
			authURL, err := adapter.BuildAuthorizationURL(integration.AuthorizeParams{
				State: "tok.sig",
				Site:  tt.site,
			})
			require.NoError(t, err)
			assert.Contains(t, authURL, tt.wantHost+"/authorization?")
			assert.Contains(t, authURL, "client_id=app-1")
			assert.Contains(t, authURL, "state=tok.sig")
		})
	}
}

func TestMeliAdapter_BuildAuthorizationURLRejectsUnknownSite(t *testing.T) {
	adapter := newMeliTestAdapter(t, nil)

	_, err := adapter.BuildAuthorizationURL(integration.AuthorizeParams{
		State: "tok.sig",
		Site:  integration.MeliSite("MEC"),
	})
	assert.ErrorIs(t, err, integration.ErrInvalidSite)

	_, err = adapter.BuildAuthorizationURL(integration.AuthorizeParams{State: "tok.sig"})
	assert.ErrorIs(t, err, integration.ErrInvalidSite)
}

func TestMeliAdapter_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "TG-123", r.PostForm.Get("code"))
		assert.Equal(t, "app-1", r.PostForm.Get("client_id"))
		w.Write([]byte(`{"access_token":"APP_USR-at","token_type":"Bearer","expires_in":21600,
			"scope":"read offline_access write","user_id":123456789,"refresh_token":"TG-rt"}`))
	}))
	defer server.Close()

	adapter := newMeliTestAdapter(t, server)
	grant, err := adapter.ExchangeCode(context.Background(), integration.ExchangeParams{Code: "TG-123"})
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-at", grant.AccessToken)
	assert.Equal(t, "TG-rt", grant.RefreshToken)
	// numeric user_id is normalized to a string account id
	assert.Equal(t, "123456789", grant.ProviderAccountID)
	assert.Equal(t, []string{"offline_access", "read", "write"}, grant.Scopes)
}

func TestMeliAdapter_ExchangeCodeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","message":"code already used"}`))
	}))
	defer server.Close()

	adapter := newMeliTestAdapter(t, server)
	_, err := adapter.ExchangeCode(context.Background(), integration.ExchangeParams{Code: "TG-used"})
	require.ErrorIs(t, err, integration.ErrExchangeRejected)
	assert.Contains(t, err.Error(), "code already used")
}

func TestMeliAdapter_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantState      integration.HealthState
		wantTokenValid bool
	}{
		{"healthy", http.StatusOK, `{"id":123456789,"nickname":"LOJA"}`, integration.HealthStateHealthy, true},
		{"token rejected", http.StatusUnauthorized, `{"message":"invalid token"}`, integration.HealthStateUnhealthy, false},
		{"server error", http.StatusBadGateway, `{}`, integration.HealthStateUnhealthy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/users/me", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newMeliTestAdapter(t, server)
			adapter.SetTokens(integration.TokenSet{AccessToken: "APP_USR-at"})
			report := adapter.HealthCheck(context.Background())
			assert.Equal(t, tt.wantState, report.Status)
			assert.Equal(t, tt.wantTokenValid, report.TokenValid)
		})
	}
}

func TestMeliAdapter_ListOrdersPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/search", r.URL.Path)
		assert.Equal(t, "123456789", r.URL.Query().Get("seller"))
		assert.Equal(t, "50", r.URL.Query().Get("offset"))
		w.Write([]byte(`{"results":[
			{"id":555,"status":"paid","date_created":"2025-05-10T14:00:00Z","total_amount":200.0,"currency_id":"BRL"}
		],"paging":{"total":120,"offset":50,"limit":50}}`))
	}))
	defer server.Close()

	adapter := newMeliTestAdapter(t, server)
	adapter.SetTokens(integration.TokenSet{AccessToken: "APP_USR-at", ProviderAccountID: "123456789"})

	page, err := adapter.ListOrders(context.Background(), integration.ListPage{Offset: 50, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 120, page.TotalCount)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "555", page.Orders[0].ProviderOrderID)
	assert.Equal(t, "paid", page.Orders[0].Status)
}

func TestMeliAdapter_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/123456789/items/search", r.URL.Path)
		w.Write([]byte(`{"results":[
			{"id":"MLB999","title":"Tenis","seller_custom_field":"SKU-9","price":299.9,"available_quantity":4}
		],"paging":{"total":1,"offset":0,"limit":50}}`))
	}))
	defer server.Close()

	adapter := newMeliTestAdapter(t, server)
	adapter.SetTokens(integration.TokenSet{AccessToken: "APP_USR-at", ProviderAccountID: "123456789"})

	page, err := adapter.ListProducts(context.Background(), integration.ListPage{})
	require.NoError(t, err)
	assert.False(t, page.HasNextPage)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "MLB999", page.Products[0].ProviderProductID)
	assert.Equal(t, "SKU-9", page.Products[0].SKU)
}
