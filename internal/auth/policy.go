package auth

import (
	"math"
	"strings"
	"unicode"

	"github.com/campus-life-events/server/internal/apperr"
)

// Policy configures password strength requirements. The zero value is not
// usable; start from DefaultPolicy.
type Policy struct {
	MinLength  int
	MinEntropy float64
}

func DefaultPolicy() Policy {
	return Policy{MinLength: 20, MinEntropy: 80}
}

// commonPasswords is checked as a lowercase substring match: a strong-looking
// password built around "Password123" is still predictable.
var commonPasswords = []string{
	"password",
	"passwort",
	"qwerty",
	"qwertz",
	"123456",
	"letmein",
	"iloveyou",
	"sunshine",
	"princess",
	"football",
	"baseball",
	"superman",
	"trustno1",
	"dragon",
	"monkey",
	"master",
	"shadow",
	"welcome",
	"admin",
	"campus",
}

// ValidatePassword applies the policy to a candidate password. The first
// violated rule wins; failures come back as validation errors with a
// human-readable reason. Pure function, no I/O.
//
// Account initialization, password change, and password reset all run the new
// password through this same check.
func ValidatePassword(password string, policy Policy) error {
	if len(password) < policy.MinLength {
		return apperr.Validationf("password must be at least %d characters long", policy.MinLength)
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if !hasLower {
		return apperr.Validation("password must include at least one lowercase letter")
	}
	if !hasUpper {
		return apperr.Validation("password must include at least one uppercase letter")
	}
	if !hasDigit {
		return apperr.Validation("password must include at least one number")
	}
	if !hasSymbol {
		return apperr.Validation("password must include at least one symbol")
	}

	lowered := strings.ToLower(password)
	for _, candidate := range commonPasswords {
		if strings.Contains(lowered, candidate) {
			return apperr.Validation("password is too common or predictable")
		}
	}

	if EstimateEntropy(password) < policy.MinEntropy {
		return apperr.Validationf("password must provide at least %.0f bits of entropy", policy.MinEntropy)
	}

	return nil
}

// EstimateEntropy returns a character-class-weighted bit estimate: the pool
// size is the sum of the sizes of every class the password draws from, and
// each character contributes log2(pool) bits.
func EstimateEntropy(password string) float64 {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	pool := 0
	if hasLower {
		pool += 26
	}
	if hasUpper {
		pool += 26
	}
	if hasDigit {
		pool += 10
	}
	if hasSymbol {
		pool += 33
	}
	if pool == 0 {
		return 0
	}

	return float64(len([]rune(password))) * math.Log2(float64(pool))
}
