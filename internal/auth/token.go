package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// NewToken generates a 256-bit cryptographically random token encoded as
// unpadded URL-safe base64 (43 characters). Used for both account setup
// tokens and password reset tokens; the encoding is safe to embed in URLs
// without escaping.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
