package marketplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

// ShopeeConfig holds partner credentials for the Shopee Open Platform
type ShopeeConfig struct {
	// PartnerID is the numeric partner id from the Shopee open platform
	PartnerID int64
	// PartnerKey is the partner secret used for request signing
	PartnerKey string
	// RedirectURI is the registered callback URL
	RedirectURI string
	// APIBaseURL is the base URL for all Shopee calls
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// ShopeeProductionAPIURL is the production API endpoint
	ShopeeProductionAPIURL = "https://partner.shopeemobile.com"
	// ShopeeSandboxAPIURL is the sandbox API endpoint
	ShopeeSandboxAPIURL = "https://partner.test-stable.shopeemobile.com"
)

// Errors for Shopee configuration
var (
	ErrShopeeConfigMissingPartnerID   = errors.New("shopee: partner id is required")
	ErrShopeeConfigMissingPartnerKey  = errors.New("shopee: partner key is required")
	ErrShopeeConfigMissingRedirectURI = errors.New("shopee: redirect uri is required")
)

// NewShopeeConfig creates a new Shopee configuration with production defaults
func NewShopeeConfig(partnerID int64, partnerKey, redirectURI string) *ShopeeConfig {
	return &ShopeeConfig{
		PartnerID:      partnerID,
		PartnerKey:     partnerKey,
		RedirectURI:    redirectURI,
		APIBaseURL:     ShopeeProductionAPIURL,
		TimeoutSeconds: 30,
	}
}

// NewSandboxShopeeConfig creates a new Shopee configuration for the sandbox
func NewSandboxShopeeConfig(partnerID int64, partnerKey, redirectURI string) *ShopeeConfig {
	return &ShopeeConfig{
		PartnerID:      partnerID,
		PartnerKey:     partnerKey,
		RedirectURI:    redirectURI,
		APIBaseURL:     ShopeeSandboxAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Shopee configuration and fills defaults
func (c *ShopeeConfig) Validate() error {
	if c.PartnerID <= 0 {
		return ErrShopeeConfigMissingPartnerID
	}
	if c.PartnerKey == "" {
		return ErrShopeeConfigMissingPartnerKey
	}
	if c.RedirectURI == "" {
		return ErrShopeeConfigMissingRedirectURI
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ShopeeProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Sign generates the HMAC-SHA256 signature over the Shopee base string.
// Public endpoints sign partner_id + path + timestamp; shop endpoints
// additionally append access_token + shop_id.
func (c *ShopeeConfig) Sign(path string, timestamp int64, extra ...string) string {
	base := strconv.FormatInt(c.PartnerID, 10) + path + strconv.FormatInt(timestamp, 10)
	for _, part := range extra {
		base += part
	}
	mac := hmac.New(sha256.New, []byte(c.PartnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}
