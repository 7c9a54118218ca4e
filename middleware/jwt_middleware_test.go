package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-not-for-production")

	token, refreshToken, err := GenerateJWT("64f1b2c3d4e5f6a7b8c9d0e1", "desk@gymdesk.test", "reception")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, refreshToken)
	assert.NotEqual(t, token, refreshToken)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1b2c3d4e5f6a7b8c9d0e1", claims.UserID)
	assert.Equal(t, "desk@gymdesk.test", claims.Email)
	assert.Equal(t, "reception", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, _, err := GenerateJWT("u1", "a@b.test", "admin")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "different-secret")
	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-not-for-production")
	_, err := ParseToken("not-a-jwt")
	require.Error(t, err)
}

func TestBlacklistedTokenIsRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-not-for-production")

	token, _, err := GenerateJWT("u1", "a@b.test", "admin")
	require.NoError(t, err)

	_, err = ParseToken(token)
	require.NoError(t, err)

	BlacklistToken(token, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(token))

	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestDefaultLandingPath(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{"reception", "/reception"},
		{"admin", "/admin"},
		{"trainer", "/admin"},
		{"", "/admin"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultLandingPath(tc.role), "role %q", tc.role)
	}
}
