package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken returns a random opaque refresh token and the hash to
// persist. Only the hash is stored; the raw token exists client-side.
func NewRefreshToken() (token string, hash string, err error) {
	raw := make([]byte, 32)
	if _, errRead := rand.Read(raw); errRead != nil {
		return "", "", fmt.Errorf("security: generate refresh token: %w", errRead)
	}
	token = hex.EncodeToString(raw)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 digest used to store and look up
// refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
