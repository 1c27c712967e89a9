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

func newBlingTestAdapter(t *testing.T, server *httptest.Server) *BlingAdapter {
	t.Helper()
	cfg := NewBlingConfig("client-1", "secret-1", "https://hub.example.com/callback")
	if server != nil {
		cfg.AuthBaseURL = server.URL
		cfg.APIBaseURL = server.URL
	}
	adapter, err := NewBlingAdapter(cfg)
	require.NoError(t, err)
	return adapter
}

func TestBlingAdapter_BuildAuthorizationURL(t *testing.T) {
	adapter := newBlingTestAdapter(t, nil)

	authURL, err := adapter.BuildAuthorizationURL(integration.AuthorizeParams{State: "abc.def"})
	require.NoError(t, err)
	assert.Contains(t, authURL, BlingAuthBaseURL+"/authorize?")
	assert.Contains(t, authURL, "client_id=client-1")
	assert.Contains(t, authURL, "state=abc.def")
	assert.Contains(t, authURL, "response_type=code")
}

func TestBlingAdapter_ExchangeCode(t *testing.T) {
	var gotGrantType, gotCode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token endpoint must use basic auth")
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)
		require.NoError(t, r.ParseForm())
		gotGrantType = r.PostForm.Get("grant_type")
		gotCode = r.PostForm.Get("code")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":21600,"scope":"orders products"}`))
	}))
	defer server.Close()

	adapter := newBlingTestAdapter(t, server)
	grant, err := adapter.ExchangeCode(context.Background(), integration.ExchangeParams{Code: "auth-code-1"})
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", gotGrantType)
	assert.Equal(t, "auth-code-1", gotCode)
	assert.Equal(t, "at-1", grant.AccessToken)
	assert.Equal(t, "rt-1", grant.RefreshToken)
	assert.Equal(t, []string{"orders", "products"}, grant.Scopes)
	assert.EqualValues(t, 21600, grant.ExpiresIn)
}

func TestBlingAdapter_ExchangeCodeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	adapter := newBlingTestAdapter(t, server)
	_, err := adapter.ExchangeCode(context.Background(), integration.ExchangeParams{Code: "expired-code"})
	require.ErrorIs(t, err, integration.ErrExchangeRejected)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestBlingAdapter_RefreshTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-old", r.PostForm.Get("refresh_token"))
		w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":21600}`))
	}))
	defer server.Close()

	adapter := newBlingTestAdapter(t, server)
	grant, err := adapter.RefreshTokens(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-2", grant.AccessToken)
	assert.Equal(t, "rt-2", grant.RefreshToken)
}

func TestBlingAdapter_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantState      integration.HealthState
		wantTokenValid bool
	}{
		{"healthy", http.StatusOK, `{"data":{"id":1,"nome":"Loja"}}`, integration.HealthStateHealthy, true},
		{"token rejected", http.StatusUnauthorized, `{}`, integration.HealthStateUnhealthy, false},
		{"server error", http.StatusInternalServerError, `{}`, integration.HealthStateUnhealthy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newBlingTestAdapter(t, server)
			adapter.SetTokens(integration.TokenSet{AccessToken: "at-1"})
			report := adapter.HealthCheck(context.Background())
			assert.Equal(t, tt.wantState, report.Status)
			assert.Equal(t, tt.wantTokenValid, report.TokenValid)
			assert.False(t, report.LastCheck.IsZero())
		})
	}
}

func TestBlingAdapter_HealthCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	adapter := newBlingTestAdapter(t, server)
	report := adapter.HealthCheck(context.Background())
	assert.Equal(t, integration.HealthStateUnhealthy, report.Status)
	assert.False(t, report.TokenValid)
}

func TestBlingAdapter_ListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pedidos/vendas", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("pagina"))
		assert.Equal(t, "2", r.URL.Query().Get("limite"))
		w.Write([]byte(`{"data":[
			{"id":101,"numero":1,"data":"2025-05-01","total":150.5,"situacao":{"id":9}},
			{"id":102,"numero":2,"data":"2025-05-02","total":80,"situacao":{"id":6}}
		],"total":5}`))
	}))
	defer server.Close()

	adapter := newBlingTestAdapter(t, server)
	adapter.SetTokens(integration.TokenSet{AccessToken: "at-1"})

	page, err := adapter.ListOrders(context.Background(), integration.ListPage{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalCount)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "101", page.Orders[0].ProviderOrderID)
	assert.Equal(t, "150.5", page.Orders[0].Total.String())
	assert.Equal(t, "BRL", page.Orders[0].Currency)
}

func TestBlingAdapter_ListProductsLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/produtos", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":7,"nome":"Camiseta","codigo":"SKU-7","preco":49.9,"estoqueAtual":12}],"total":1}`))
	}))
	defer server.Close()

	adapter := newBlingTestAdapter(t, server)
	adapter.SetTokens(integration.TokenSet{AccessToken: "at-1"})

	page, err := adapter.ListProducts(context.Background(), integration.ListPage{Offset: 0, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)
	assert.False(t, page.HasNextPage)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "SKU-7", page.Products[0].SKU)
}
