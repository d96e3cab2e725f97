package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1)
	signed, expires, err := m.GenerateToken("admin", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestRejectsWrongSecret(t *testing.T) {
	signed, _, err := NewJWTManager("one", 1).GenerateToken("admin", RoleAdmin)
	require.NoError(t, err)
	_, err = NewJWTManager("two", 1).VerifyToken(signed)
	assert.Error(t, err)
}

func TestRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", 1)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, _, err := m.GenerateToken("admin", RoleAdmin)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifyToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
