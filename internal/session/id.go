package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenSize = 32 // 256 bits

// NewToken generates an opaque, URL-safe session token.
func NewToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
