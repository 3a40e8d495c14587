package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the client reads from an access token. The signature
// is never checked here; the backend remains the authority.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseTokenClaims decodes the claims of a JWT without verifying it.
func ParseTokenClaims(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// TokenExpired reports whether token is a JWT whose exp lies before now.
// Opaque tokens and tokens without exp are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	claims, err := ParseTokenClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// subjectOf returns the sub claim, or "" when token is not a JWT.
func subjectOf(token string) string {
	claims, err := ParseTokenClaims(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}
