package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercehub/backend/internal/domain/integration"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(RegistryConfig{
		Bling:        NewBlingConfig("c", "s", "https://hub.example.com/cb"),
		MercadoLivre: NewMeliConfig("c", "s", "https://hub.example.com/cb"),
		Shopee:       NewShopeeConfig(1, "k", "https://hub.example.com/cb"),
		Amazon:       NewAmazonConfig("app", "c", "s", "https://hub.example.com/cb"),
	})
	require.NoError(t, err)
	return registry
}

func TestRegistry_Provider(t *testing.T) {
	registry := newTestRegistry(t)

	for _, code := range integration.AllProviderCodes() {
		provider, err := registry.Provider(code)
		require.NoError(t, err)
		assert.Equal(t, code, provider.Code())
	}
}

func TestRegistry_FreshInstancePerCall(t *testing.T) {
	registry := newTestRegistry(t)

	a, err := registry.Provider(integration.ProviderCodeBling)
	require.NoError(t, err)
	b, err := registry.Provider(integration.ProviderCodeBling)
	require.NoError(t, err)

	// hydrating one instance must not leak into the other
	a.SetTokens(integration.TokenSet{AccessToken: "at-1"})
	assert.NotSame(t, a, b)
	assert.Empty(t, b.(*BlingAdapter).tokens.AccessToken)
}

func TestRegistry_UnknownAndUnconfigured(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Provider(integration.ProviderCode("EBAY"))
	assert.ErrorIs(t, err, integration.ErrInvalidProvider)

	partial, err := NewRegistry(RegistryConfig{
		Bling: NewBlingConfig("c", "s", "https://hub.example.com/cb"),
	})
	require.NoError(t, err)
	_, err = partial.Provider(integration.ProviderCodeShopee)
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestRegistry_ValidatesConfigsUpFront(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{
		Bling: &BlingConfig{ClientSecret: "s", RedirectURI: "https://hub.example.com/cb"},
	})
	assert.ErrorIs(t, err, ErrBlingConfigMissingClientID)
}

func TestRegistry_Codes(t *testing.T) {
	registry := newTestRegistry(t)
	assert.Equal(t, []integration.ProviderCode{
		integration.ProviderCodeAmazon,
		integration.ProviderCodeBling,
		integration.ProviderCodeMercadoLivre,
		integration.ProviderCodeShopee,
	}, registry.Codes())
}
