package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", "stagelive", 15*time.Minute)

	token, err := m.GenerateIdentityToken("user-a", "Alice", []string{"moderator"}, time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-a", claims.UserID)
	require.Equal(t, "Alice", claims.StageName)
	require.Equal(t, []string{"moderator"}, claims.Roles)
	require.Equal(t, "stagelive", claims.Issuer)
}

func TestIdentityTokenWrongSecret(t *testing.T) {
	m := NewManager("test-secret", "stagelive", 15*time.Minute)
	other := NewManager("other-secret", "stagelive", 15*time.Minute)

	token, err := m.GenerateIdentityToken("user-a", "Alice", nil, time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityTokenExpired(t *testing.T) {
	m := NewManager("test-secret", "stagelive", 15*time.Minute)

	token, err := m.GenerateIdentityToken("user-a", "Alice", nil, -time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestStageTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", "stagelive", 15*time.Minute)

	token, expiresAt, err := m.GenerateStageToken("user-a", "audition")
	require.NoError(t, err)
	require.Greater(t, expiresAt, time.Now().Unix())

	claims, err := m.ValidateStageToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-a", claims.UserID)
	require.Equal(t, "audition", claims.RoomID)

	// A stage credential is not an identity token for another manager.
	_, err = NewManager("other-secret", "stagelive", time.Minute).ValidateStageToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageToken(t *testing.T) {
	m := NewManager("test-secret", "stagelive", 15*time.Minute)

	_, err := m.ValidateToken("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateStageToken("")
	require.ErrorIs(t, err, ErrInvalidToken)
}
