package marketplace

import "errors"

// MeliConfig holds application credentials for the Mercado Livre API
type MeliConfig struct {
	// ClientID is the application id from the Mercado Livre dev center
	ClientID string
	// ClientSecret is the application secret
	ClientSecret string
	// RedirectURI is the registered callback URL
	RedirectURI string
	// APIBaseURL is the base URL for API and token calls
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int

	// authBaseURLs overrides the per-site consent hosts (tests only)
	authBaseURLs map[string]string
}

// MeliAPIBaseURL is the production API base URL, shared across all sites
const MeliAPIBaseURL = "https://api.mercadolibre.com"

// meliAuthBaseURLs maps each national site to its consent host. The token
// endpoint is site-independent; only the consent screen is localized.
var meliAuthBaseURLs = map[string]string{
	"MLB": "https://auth.mercadolivre.com.br",
	"MLA": "https://auth.mercadolibre.com.ar",
	"MLM": "https://auth.mercadolibre.com.mx",
	"MLC": "https://auth.mercadolibre.cl",
	"MCO": "https://auth.mercadolibre.com.co",
}

// Errors for Mercado Livre configuration
var (
	ErrMeliConfigMissingClientID     = errors.New("mercadolivre: client id is required")
	ErrMeliConfigMissingClientSecret = errors.New("mercadolivre: client secret is required")
	ErrMeliConfigMissingRedirectURI  = errors.New("mercadolivre: redirect uri is required")
)

// NewMeliConfig creates a new Mercado Livre configuration with defaults
func NewMeliConfig(clientID, clientSecret, redirectURI string) *MeliConfig {
	return &MeliConfig{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURI:    redirectURI,
		APIBaseURL:     MeliAPIBaseURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and fills defaults
func (c *MeliConfig) Validate() error {
	if c.ClientID == "" {
		return ErrMeliConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMeliConfigMissingClientSecret
	}
	if c.RedirectURI == "" {
		return ErrMeliConfigMissingRedirectURI
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = MeliAPIBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// authBaseURL returns the consent host for a site
func (c *MeliConfig) authBaseURL(site string) (string, bool) {
	if c.authBaseURLs != nil {
		base, ok := c.authBaseURLs[site]
		return base, ok
	}
	base, ok := meliAuthBaseURLs[site]
	return base, ok
}
