package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseTokenClaims(t *testing.T) {
	t.Run("Reads subject and expiry", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		claims, err := ParseTokenClaims(signedToken(t, "user-7", exp))

		require.NoError(t, err)
		assert.Equal(t, "user-7", claims.Subject)
		assert.True(t, exp.Equal(claims.ExpiresAt))
	})

	t.Run("Opaque token", func(t *testing.T) {
		_, err := ParseTokenClaims("not-a-jwt")
		assert.Error(t, err)
		assert.Empty(t, subjectOf("not-a-jwt"))
	})
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, TokenExpired(signedToken(t, "u", now.Add(-time.Minute)), now))
	assert.False(t, TokenExpired(signedToken(t, "u", now.Add(time.Minute)), now))
	assert.False(t, TokenExpired(signedToken(t, "u", time.Time{}), now), "no exp claim")
	assert.False(t, TokenExpired("opaque-token", now))
}
