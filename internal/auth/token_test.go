package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Roundtrip(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)

	signed, err := tokens.Issue("u-123", "ADMIN")
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-123", claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Minute)

	issued := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Issue("u-123", "CUSTOMER")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	signed, err := NewTokens([]byte("secret-a"), time.Hour).Issue("u-123", "CUSTOMER")
	require.NoError(t, err)

	_, err = NewTokens([]byte("secret-b"), time.Hour).Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsNonSessionType(t *testing.T) {
	secret := []byte("test-secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-123",
		"typ": "verify",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokens(secret, time.Hour).Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pw", hash)

	require.NoError(t, CheckPassword(hash, "s3cret-pw"))
	require.Error(t, CheckPassword(hash, "wrong"))
}
