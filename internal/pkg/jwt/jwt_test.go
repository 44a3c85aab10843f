package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	require.Error(t, err)
}

func TestSignAndParse(t *testing.T) {
	v, err := NewVerifier("test-secret")
	require.NoError(t, err)

	token, err := v.Sign("8f14e45f-ceea-467f-9c4e-1a1b2c3d4e5f", time.Minute)
	require.NoError(t, err)

	claims, err := v.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "8f14e45f-ceea-467f-9c4e-1a1b2c3d4e5f", claims.UserID())
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer, err := NewVerifier("secret-a")
	require.NoError(t, err)
	verifier, err := NewVerifier("secret-b")
	require.NoError(t, err)

	token, err := signer.Sign("user-1", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	v, err := NewVerifier("test-secret")
	require.NoError(t, err)

	token, err := v.Sign("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = v.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	v, err := NewVerifier("test-secret")
	require.NoError(t, err)

	token, err := v.Sign("", time.Minute)
	require.NoError(t, err)

	_, err = v.Parse(token)
	require.ErrorContains(t, err, "subject")
}

func TestParseRejectsGarbage(t *testing.T) {
	v, err := NewVerifier("test-secret")
	require.NoError(t, err)

	_, err = v.Parse("not-a-token")
	require.Error(t, err)
}
