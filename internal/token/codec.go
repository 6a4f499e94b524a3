package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultFudge is the buffer before expiry at which an access token is
// already considered expired.
const DefaultFudge = 10 * time.Second

var parser = jwt.NewParser()

// ExpiresAt returns the exp claim of a JWT. The signature is not verified;
// the token is only inspected to schedule renewal.
func ExpiresAt(tok string) (time.Time, bool) {
	if tok == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// RemainingLifetime returns how long the token stays valid relative to now.
// The result may be negative. ok is false when the token cannot be decoded
// or carries no exp claim; callers must treat that as expired.
func RemainingLifetime(tok string, now time.Time) (remaining time.Duration, ok bool) {
	exp, ok := ExpiresAt(tok)
	if !ok {
		return 0, false
	}
	return exp.Sub(now), true
}

// IsExpired reports whether tok is empty, undecodable, or expires within fudge.
func IsExpired(tok string, fudge time.Duration, now time.Time) bool {
	remaining, ok := RemainingLifetime(tok, now)
	if !ok {
		return true
	}
	return remaining <= fudge
}

// Preview returns a redacted form of tok that is safe to log.
func Preview(tok string) string {
	if len(tok) > 12 {
		return tok[:6] + "…" + tok[len(tok)-6:]
	}
	return "…"
}
