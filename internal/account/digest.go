package account

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyDigest = errors.New("password digest is empty")

// HashDigest wraps the client-computed password digest for storage. The
// digest is pre-hashed with SHA-256 so bcrypt's 72 byte input limit never
// truncates it.
func HashDigest(digest string) (string, error) {
	if digest == "" {
		return "", ErrEmptyDigest
	}

	wrapped, err := bcrypt.GenerateFromPassword(prehash(digest), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(wrapped), nil
}

// VerifyDigest reports whether digest matches the stored wrapped value.
func VerifyDigest(stored, digest string) bool {
	if stored == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), prehash(digest)) == nil
}

func prehash(digest string) []byte {
	sum := sha256.Sum256([]byte(digest))
	return []byte(hex.EncodeToString(sum[:]))
}
