package marketplace

import "errors"

// AmazonConfig holds application credentials for Amazon Selling Partner
type AmazonConfig struct {
	// ApplicationID is the SP application id shown on the consent screen
	ApplicationID string
	// ClientID is the LWA client id
	ClientID string
	// ClientSecret is the LWA client secret
	ClientSecret string
	// RedirectURI is the registered callback URL
	RedirectURI string
	// TokenURL is the LWA token endpoint, shared across regions
	TokenURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int

	// consentBaseURLs / apiBaseURLs override the regional hosts (tests only)
	consentBaseURLs map[string]string
	apiBaseURLs     map[string]string
}

// AmazonTokenURL is the production LWA token endpoint
const AmazonTokenURL = "https://api.amazon.com/auth/o2/token"

// amazonConsentBaseURLs maps each selling region to its Seller Central
// consent host
var amazonConsentBaseURLs = map[string]string{
	"NA": "https://sellercentral.amazon.com",
	"EU": "https://sellercentral-europe.amazon.com",
	"FE": "https://sellercentral-japan.amazon.com",
}

// amazonAPIBaseURLs maps each selling region to its SP-API host
var amazonAPIBaseURLs = map[string]string{
	"NA": "https://sellingpartnerapi-na.amazon.com",
	"EU": "https://sellingpartnerapi-eu.amazon.com",
	"FE": "https://sellingpartnerapi-fe.amazon.com",
}

// Errors for Amazon configuration
var (
	ErrAmazonConfigMissingApplicationID = errors.New("amazon: application id is required")
	ErrAmazonConfigMissingClientID      = errors.New("amazon: client id is required")
	ErrAmazonConfigMissingClientSecret  = errors.New("amazon: client secret is required")
	ErrAmazonConfigMissingRedirectURI   = errors.New("amazon: redirect uri is required")
)

// NewAmazonConfig creates a new Amazon configuration with defaults
func NewAmazonConfig(applicationID, clientID, clientSecret, redirectURI string) *AmazonConfig {
	return &AmazonConfig{
		ApplicationID:  applicationID,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURI:    redirectURI,
		TokenURL:       AmazonTokenURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Amazon configuration and fills defaults
func (c *AmazonConfig) Validate() error {
	if c.ApplicationID == "" {
		return ErrAmazonConfigMissingApplicationID
	}
	if c.ClientID == "" {
		return ErrAmazonConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrAmazonConfigMissingClientSecret
	}
	if c.RedirectURI == "" {
		return ErrAmazonConfigMissingRedirectURI
	}
	if c.TokenURL == "" {
		c.TokenURL = AmazonTokenURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// consentBaseURL returns the Seller Central host for a region
func (c *AmazonConfig) consentBaseURL(region string) (string, bool) {
	if c.consentBaseURLs != nil {
		base, ok := c.consentBaseURLs[region]
		return base, ok
	}
	base, ok := amazonConsentBaseURLs[region]
	return base, ok
}

// apiBaseURL returns the SP-API host for a region
func (c *AmazonConfig) apiBaseURL(region string) (string, bool) {
	if c.apiBaseURLs != nil {
		base, ok := c.apiBaseURLs[region]
		return base, ok
	}
	base, ok := amazonAPIBaseURLs[region]
	return base, ok
}
