package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q is not PHC argon2id format", hash)
	}

	if err := VerifyPassword("correct horse battery staple", hash); err != nil {
		t.Errorf("VerifyPassword rejected the correct password: %v", err)
	}

	if err := VerifyPassword("wrong password", hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same input twice")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	second, err := HashPassword("same input twice")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical; salt is not random")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	malformed := []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
	}

	for _, h := range malformed {
		if err := VerifyPassword("anything", h); err == nil {
			t.Errorf("VerifyPassword(%q) succeeded on malformed hash", h)
		} else if errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("VerifyPassword(%q) reported mismatch instead of malformed hash", h)
		}
	}
}
