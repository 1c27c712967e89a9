package marketplace

import (
	"fmt"
	"sort"

	"github.com/commercehub/backend/internal/domain/integration"
)

// Registry implements integration.ProviderRegistry over the configured
// provider set. Provider() returns a fresh adapter on every call, so token
// hydration via SetTokens never leaks between requests.
type Registry struct {
	factories map[integration.ProviderCode]func() (integration.MarketplaceProvider, error)
}

var _ integration.ProviderRegistry = (*Registry)(nil)

// RegistryConfig carries the per-provider application credentials. A nil
// entry leaves that provider unregistered.
type RegistryConfig struct {
	Bling        *BlingConfig
	MercadoLivre *MeliConfig
	Shopee       *ShopeeConfig
	Amazon       *AmazonConfig
}

// NewRegistry validates every configured provider up front and returns the
// registry. Validation failures surface at startup, not on first use.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{
		factories: make(map[integration.ProviderCode]func() (integration.MarketplaceProvider, error)),
	}

	if cfg.Bling != nil {
		if err := cfg.Bling.Validate(); err != nil {
			return nil, err
		}
		c := cfg.Bling
		r.factories[integration.ProviderCodeBling] = func() (integration.MarketplaceProvider, error) {
			return NewBlingAdapter(c)
		}
	}
	if cfg.MercadoLivre != nil {
		if err := cfg.MercadoLivre.Validate(); err != nil {
			return nil, err
		}
		c := cfg.MercadoLivre
		r.factories[integration.ProviderCodeMercadoLivre] = func() (integration.MarketplaceProvider, error) {
			return NewMeliAdapter(c)
		}
	}
	if cfg.Shopee != nil {
		if err := cfg.Shopee.Validate(); err != nil {
			return nil, err
		}
		c := cfg.Shopee
		r.factories[integration.ProviderCodeShopee] = func() (integration.MarketplaceProvider, error) {
			return NewShopeeAdapter(c)
		}
	}
	if cfg.Amazon != nil {
		if err := cfg.Amazon.Validate(); err != nil {
			return nil, err
		}
		c := cfg.Amazon
		r.factories[integration.ProviderCodeAmazon] = func() (integration.MarketplaceProvider, error) {
			return NewAmazonAdapter(c)
		}
	}

	return r, nil
}

// Provider returns a new adapter for the given code
func (r *Registry) Provider(code integration.ProviderCode) (integration.MarketplaceProvider, error) {
	if !code.IsValid() {
		return nil, fmt.Errorf("%w: %q", integration.ErrInvalidProvider, string(code))
	}
	factory, ok := r.factories[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrNotConfigured, code)
	}
	return factory()
}

// Codes returns the codes of all registered providers, sorted
func (r *Registry) Codes() []integration.ProviderCode {
	codes := make([]integration.ProviderCode, 0, len(r.factories))
	for code := range r.factories {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
