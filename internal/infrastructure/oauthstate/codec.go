// Package oauthstate implements the signed state token that rides through
// provider OAuth redirects. The token carries routing context only, never
// secrets: the payload is visible base64url JSON, protected against
// tampering by an HMAC-SHA256 signature.
package oauthstate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStateMalformed indicates the token structure or signature is invalid
	ErrStateMalformed = errors.New("oauthstate: malformed or tampered state token")
	// ErrStateExpired indicates the token is older than the allowed window
	ErrStateExpired = errors.New("oauthstate: state token expired")
	// ErrWeakSecret indicates the signing secret fails the startup policy
	ErrWeakSecret = errors.New("oauthstate: signing secret must be at least 32 characters")
)

// DefaultMaxAge is how long an issued state token stays valid
const DefaultMaxAge = 10 * time.Minute

const minSecretLength = 32

// Payload is the context embedded in a state token. IssuedAt is epoch
// milliseconds; everything else is optional routing data echoed back to
// the callback handler.
type Payload struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	UserID     uuid.UUID `json:"user_id"`
	IssuedAt   int64     `json:"issued_at"`
	SiteID     string    `json:"site_id,omitempty"`
	Region     string    `json:"region,omitempty"`
	ShopID     string    `json:"shop_id,omitempty"`
	Custom     string    `json:"custom,omitempty"`
	SuccessURL string    `json:"success_url,omitempty"`
	ErrorURL   string    `json:"error_url,omitempty"`
}

// Codec encodes and verifies state tokens. The clock is injectable so
// expiry behavior is testable.
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec builds a codec with the given signing secret and token lifetime.
// A non-positive maxAge falls back to DefaultMaxAge.
func NewCodec(secret string, maxAge time.Duration) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// WithClock overrides the codec's clock
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Encode stamps the payload with the current time and returns
// base64url(json) + "." + base64url(hmac-sha256).
func (c *Codec) Encode(payload Payload) (string, error) {
	payload.IssuedAt = c.now().UnixMilli()
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + c.sign(encoded), nil
}

// Decode verifies the signature and age, then returns the payload.
// Signature and structure problems yield ErrStateMalformed; a valid but
// stale token yields ErrStateExpired. Expiry is checked only after the
// signature, so an attacker cannot probe the clock with forged tokens.
func (c *Codec) Decode(token string) (*Payload, error) {
	encoded, sig, found := strings.Cut(token, ".")
	if !found || encoded == "" || sig == "" {
		return nil, ErrStateMalformed
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return nil, ErrStateMalformed
	}

	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrStateMalformed
	}
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrStateMalformed
	}
	if payload.TenantID == uuid.Nil || payload.IssuedAt <= 0 {
		return nil, ErrStateMalformed
	}

	issued := time.UnixMilli(payload.IssuedAt)
	if c.now().Sub(issued) > c.maxAge {
		return nil, ErrStateExpired
	}
	return &payload, nil
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
