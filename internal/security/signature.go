// Package security provides signing, password hashing, and token helpers.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes HMAC-SHA256 signatures with an injected shared secret.
// The zero value is unusable; construct with NewSigner.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer bound to the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 digest of data.
func (s *Signer) Sign(data string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches Sign(data). The comparison is
// constant time; a malformed signature simply verifies false.
func (s *Signer) Verify(data, signature string) bool {
	expected := s.Sign(data)
	provided, errDecode := hex.DecodeString(signature)
	if errDecode != nil {
		return false
	}
	expectedRaw, _ := hex.DecodeString(expected)
	return hmac.Equal(provided, expectedRaw)
}

// ShortHash returns the first 16 hex characters of the SHA-256 digest of
// data concatenated with the signer secret. Used as a per-issuance nonce
// inside QR payloads.
func (s *Signer) ShortHash(data string) string {
	sum := sha256.Sum256([]byte(data + ":" + string(s.secret)))
	return hex.EncodeToString(sum[:])[:16]
}
