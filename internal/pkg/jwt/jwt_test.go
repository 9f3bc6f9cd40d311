package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(42, "alice", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestParseWrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "bob", []byte("right"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("wrong"))
	require.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(1, "bob", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	require.Error(t, err)
}
