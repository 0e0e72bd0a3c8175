package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewJWTServiceDefaultsTTL(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "desk-secret",
		Issuer:         "complaintdesk",
		AccessTokenTTL: time.Hour,
		Clock:          fixedClock(issued),
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("user-1", "ann@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "ann@example.com", claims.Email)
	require.Equal(t, "complaintdesk", claims.Issuer)
	require.True(t, claims.ExpiresAt.Time.Equal(issued.Add(time.Hour)))
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken("", "")
	require.Error(t, err)
}

func TestValidateAccessTokenRejections(t *testing.T) {
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	signer, err := NewJWTService(JWTConfig{Secret: "one", Issuer: "complaintdesk", AccessTokenTTL: time.Minute, Clock: fixedClock(issued)})
	require.NoError(t, err)
	token, err := signer.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	t.Run("signature", func(t *testing.T) {
		verifier, err := NewJWTService(JWTConfig{Secret: "two", Clock: fixedClock(issued)})
		require.NoError(t, err)
		_, err = verifier.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		later, err := NewJWTService(JWTConfig{Secret: "one", Issuer: "complaintdesk", Clock: fixedClock(issued.Add(2 * time.Minute))})
		require.NoError(t, err)
		_, err = later.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("issuer", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "one", Issuer: "elsewhere", Clock: fixedClock(issued)})
		require.NoError(t, err)
		_, err = other.ValidateAccessToken(token)
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := signer.ValidateAccessToken("")
		require.Error(t, err)
	})
}
