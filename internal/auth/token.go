// Package auth guards the mutating registry API endpoints with a bearer token.
//
// Only the bcrypt hash of the token is kept in configuration. The raw token is
// printed once by `umlreg token` and never stored.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks umlreg API tokens.
	TokenPrefix = "umlreg_sk_" // #nosec G101 //nolint:gosec // prefix pattern, not a credential

	// TokenLength is the length of the random part in bytes (hex encoded in the token)
	TokenLength = 32

	// visiblePrefix is the number of secret characters MaskToken keeps
	visiblePrefix = 8

	bcryptCost = 12
)

// GenerateToken returns a new random API token.
// Format: umlreg_sk_<64 hex chars>
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(b), nil
}

// HashToken creates the bcrypt hash stored in api.tokenHash.
func HashToken(token string) (string, error) {
	secret := strings.TrimPrefix(token, TokenPrefix)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks a token against a hash.
func VerifyToken(token, hash string) bool {
	secret := strings.TrimPrefix(token, TokenPrefix)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// IsValidTokenFormat checks prefix, length and encoding of a token.
func IsValidTokenFormat(token string) bool {
	if !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	secret := strings.TrimPrefix(token, TokenPrefix)
	if len(secret) != TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// MaskToken returns a display form of a token.
// Example: umlreg_sk_a1b2c3d4****...****
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+visiblePrefix {
		return "****"
	}
	return token[:len(TokenPrefix)+visiblePrefix] + "****...****"
}
