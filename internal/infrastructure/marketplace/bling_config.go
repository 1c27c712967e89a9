package marketplace

import "errors"

// BlingConfig holds application credentials for the Bling ERP API
type BlingConfig struct {
	// ClientID is the OAuth client id from the Bling developer portal
	ClientID string
	// ClientSecret is the OAuth client secret
	ClientSecret string
	// RedirectURI is the registered callback URL
	RedirectURI string
	// AuthBaseURL is the base URL for the authorize endpoint
	AuthBaseURL string
	// APIBaseURL is the base URL for API and token calls
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// BlingAuthBaseURL is the production authorize base URL
	BlingAuthBaseURL = "https://www.bling.com.br/Api/v3/oauth"
	// BlingAPIBaseURL is the production API base URL
	BlingAPIBaseURL = "https://api.bling.com.br/Api/v3"
)

// Errors for Bling configuration
var (
	ErrBlingConfigMissingClientID     = errors.New("bling: client id is required")
	ErrBlingConfigMissingClientSecret = errors.New("bling: client secret is required")
	ErrBlingConfigMissingRedirectURI  = errors.New("bling: redirect uri is required")
)

// NewBlingConfig creates a new Bling configuration with production defaults
func NewBlingConfig(clientID, clientSecret, redirectURI string) *BlingConfig {
	return &BlingConfig{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURI:    redirectURI,
		AuthBaseURL:    BlingAuthBaseURL,
		APIBaseURL:     BlingAPIBaseURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Bling configuration and fills defaults
func (c *BlingConfig) Validate() error {
	if c.ClientID == "" {
		return ErrBlingConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrBlingConfigMissingClientSecret
	}
	if c.RedirectURI == "" {
		return ErrBlingConfigMissingRedirectURI
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = BlingAuthBaseURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = BlingAPIBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
