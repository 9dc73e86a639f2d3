// Package auth provides the dashboard-token credential scheme.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token layout: base64url( random(32) || HMAC-SHA256(userID, secret) ), unpadded.
// The random half guarantees uniqueness; the MAC half binds the token to the
// account it was issued for without a database round-trip.
const (
	// TokenRandomLen is the number of random bytes in a token.
	TokenRandomLen = 32
	// TokenPrefixLen is the length of the indexed lookup prefix.
	// Stored in the clear; it is a sharding aid, not a secret.
	TokenPrefixLen = 12
)

// GeneratedToken contains the parts of a newly minted dashboard token.
type GeneratedToken struct {
	Plaintext string // Full token (show once only)
	Hash      string // Argon2id hash for storage
	Prefix    string // 12-char indexed prefix
}

// GenerateToken mints a dashboard token bound to the given user ID.
// Returns the plaintext token (to show once), hash (to store), and prefix (for lookup).
func GenerateToken(userID string, secret []byte) (*GeneratedToken, error) {
	rnd := make([]byte, TokenRandomLen)
	if _, err := rand.Read(rnd); err != nil {
		return nil, fmt.Errorf("generate token randomness: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	tag := mac.Sum(nil)

	plaintext := base64.RawURLEncoding.EncodeToString(append(rnd, tag...))

	hash, err := HashToken(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    Prefix(plaintext),
	}, nil
}

// Prefix returns the fixed-length lookup prefix of a token.
// Must be computed identically at issuance and at lookup time.
func Prefix(token string) string {
	if len(token) < TokenPrefixLen {
		return token
	}
	return token[:TokenPrefixLen]
}
