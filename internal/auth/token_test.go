package auth

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken error: %v", err)
		}

		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not unpadded URL-safe base64: %v", token, err)
		}
		if len(raw) != 32 {
			t.Fatalf("token carries %d bytes of entropy, want 32", len(raw))
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token %q contains characters that need URL escaping", token)
		}

		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}
