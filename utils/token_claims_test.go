package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	token := mint(t, AccessClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	})

	info, err := InspectToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", info.Subject)
	assert.Equal(t, "access", info.Type)
	assert.True(t, info.IssuedAt.Equal(now))
	assert.True(t, info.ExpiresAt.Equal(now.Add(15*time.Minute)))
	assert.False(t, info.Expired(now))
	assert.True(t, info.Expired(now.Add(time.Hour)))
	assert.NotContains(t, info.Masked, token[20:len(token)-6])
}

func TestInspectToken_UserIDFallback(t *testing.T) {
	token := mint(t, jwt.MapClaims{"user_id": 7})

	info, err := InspectToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7", info.Subject)
	assert.False(t, info.Expired(time.Now()), "no exp claim never expires locally")
}

func TestInspectToken_Malformed(t *testing.T) {
	_, err := InspectToken("not-a-jwt")
	require.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "...", MaskToken("short"))
	assert.Equal(t, "abcdefgh...", MaskToken("abcdefghijkl"))
	assert.Equal(t, "abcdefghijkl...uvwxyz", MaskToken("abcdefghijklmnopqrstuvwxyz"))
}
