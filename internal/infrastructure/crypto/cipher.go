// Package crypto provides the cipher used to protect provider tokens at rest.
// Tokens are stored as AES-256-GCM ciphertext; the key is derived once from
// the configured application secret.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrWeakSecret indicates the configured secret fails the startup policy
	ErrWeakSecret = errors.New("crypto: encryption secret does not meet requirements")
	// ErrIntegrityCheckFailed indicates the ciphertext failed authentication.
	// Decryption never returns partial plaintext.
	ErrIntegrityCheckFailed = errors.New("crypto: ciphertext integrity check failed")
	// ErrMalformedCiphertext indicates the blob is not a valid encrypted token
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
)

const (
	minSecretLength = 32
	pbkdf2Rounds    = 4096
	keyLength       = 32
)

// Key derivation salt. Fixed so the same secret always yields the same key;
// per-message uniqueness comes from the GCM nonce.
var derivationSalt = []byte("commercehub-token-cipher-v1")

// TokenCipher encrypts and decrypts provider tokens. It is safe for
// concurrent use.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives an AES-256 key from the secret and returns a ready
// cipher. The secret must be at least 32 characters and contain letters and
// digits; the secret value itself never appears in any error.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(secret), derivationSalt, pbkdf2Rounds, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init failed: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init failed: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

func validateSecret(secret string) error {
	if len(secret) < minSecretLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakSecret, minSecretLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range secret {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: must contain letters and digits", ErrWeakSecret)
	}
	return nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
// A fresh random nonce is drawn per call, so equal plaintexts yield
// different blobs.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce generation failed: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any tampering or key mismatch
// yields ErrIntegrityCheckFailed; garbage plaintext is never returned.
func (c *TokenCipher) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrMalformedCiphertext
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrityCheckFailed
	}
	return string(plaintext), nil
}
