// pantry/crypto/random.go

// Package crypto wraps crypto/rand for tokens and compares them in constant time.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// TokenBytes is the entropy of tokens from GenerateToken.
const TokenBytes = 32

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomHex generates a random hex string of the specified byte length.
// The returned string will be 2*n characters long.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken generates a secure random token for CSRF protection.
// Returns a 32-byte token as a 64-character hex string.
func GenerateToken() (string, error) {
	return RandomHex(TokenBytes)
}

// TokensEqual compares two tokens in constant time.
// Empty tokens never match.
func TokensEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
