package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	signed, err := GenerateToken(42, "alice", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(signed, "secret")
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestTokenWrongSecret(t *testing.T) {
	signed, err := GenerateToken(42, "alice", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(signed, "other-secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	signed, err := GenerateToken(42, "alice", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(signed, "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token", "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}
