package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateToken("sess-a")
	require.NoError(t, err)

	sessionID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "sess-a", sessionID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenService("secret-one").GenerateToken("sess-a")
	require.NoError(t, err)

	_, err = NewTokenService("secret-two").ValidateToken(token)
	require.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	_, err := NewTokenService("secret").ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestTokenWithoutSubjectRejected(t *testing.T) {
	svc := NewTokenService("secret")
	token, err := svc.GenerateToken("")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
