package security

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrWeakSecret = errors.New("session secret must be at least 16 bytes")

// DeriveKey expands the single configured secret into an independent
// 32-byte key per purpose, so the CSRF key never equals anything else
// derived from SESSION_SECRET.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if len(secret) < 16 {
		return nil, ErrWeakSecret
	}

	r := hkdf.New(sha256.New, []byte(secret), []byte("givehub"), []byte(purpose))

	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
