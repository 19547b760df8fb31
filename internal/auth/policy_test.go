package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/campus-life-events/server/internal/apperr"
)

func assertValidation(t *testing.T, err error, wantSubstring string) {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(appErr.Message, wantSubstring) {
		t.Errorf("message %q does not mention %q", appErr.Message, wantSubstring)
	}
}

func TestValidatePassword_ShortAllLowercase(t *testing.T) {
	// 19 characters, all lowercase: violates length and class rules, but the
	// length rule is checked first and wins.
	err := ValidatePassword("abcdefghijklmnopqrs", DefaultPolicy())
	assertValidation(t, err, "at least 20 characters")
}

func TestValidatePassword_MissingClasses(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"no lowercase", "XKCD-STYLE-ENTROPY-9381", "lowercase"},
		{"no uppercase", "xkcd-style-entropy-9381", "uppercase"},
		{"no digit", "Xkcd-Style-Entropy-Here!", "number"},
		{"no symbol", "XkcdStyleEntropy938142", "symbol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, ValidatePassword(tt.password, DefaultPolicy()), tt.want)
		})
	}
}

func TestValidatePassword_BlocklistedSubstring(t *testing.T) {
	// 23 characters, all four classes, but contains "password".
	err := ValidatePassword("My-Password-Is-Great-42", DefaultPolicy())
	assertValidation(t, err, "too common")
}

func TestValidatePassword_CompliantAccepted(t *testing.T) {
	// 24 characters, all four character classes, no blocklisted substring.
	if err := ValidatePassword("Crz7!vK2-qated#Wm9+xLb4e", DefaultPolicy()); err != nil {
		t.Fatalf("expected compliant password to pass, got %v", err)
	}
}

func TestValidatePassword_EntropyThreshold(t *testing.T) {
	// Short length floor so the entropy rule is what trips: 6 chars over a
	// 95-symbol pool is under 40 bits.
	policy := Policy{MinLength: 4, MinEntropy: 60}
	err := ValidatePassword("aB1!xy", policy)
	assertValidation(t, err, "entropy")
}

func TestValidatePassword_FirstRuleWins(t *testing.T) {
	// Violates length, classes, and blocklist at once; only the length
	// message may surface.
	err := ValidatePassword("password", DefaultPolicy())
	assertValidation(t, err, "at least 20 characters")
}

func TestEstimateEntropy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		minBits  float64
		maxBits  float64
	}{
		{"empty", "", 0, 0},
		{"lowercase only", "abcdefgh", 37, 38},   // 8 * log2(26)
		{"all four classes", "aB3!aB3!", 52, 53}, // 8 * log2(95)
		{"long mixed", strings.Repeat("aB3!", 6), 157, 158},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateEntropy(tt.password)
			if got < tt.minBits || got > tt.maxBits {
				t.Errorf("EstimateEntropy(%q) = %.2f, want within [%.0f, %.0f]", tt.password, got, tt.minBits, tt.maxBits)
			}
		})
	}
}
