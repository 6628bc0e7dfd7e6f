package security

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	secret := "0123456789abcdef-secret"

	a, err := DeriveKey(secret, "csrf")
	if err != nil {
		t.Fatalf("DeriveKey() error: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(a))
	}

	again, _ := DeriveKey(secret, "csrf")
	if !bytes.Equal(a, again) {
		t.Fatal("expected deterministic derivation")
	}

	other, _ := DeriveKey(secret, "cookies")
	if bytes.Equal(a, other) {
		t.Fatal("expected distinct keys per purpose")
	}
}

func TestDeriveKeyRejectsShortSecret(t *testing.T) {
	if _, err := DeriveKey("short", "csrf"); !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("expected ErrWeakSecret, got %v", err)
	}
}
