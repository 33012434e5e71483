package attestation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

const (
	testKey  = "rotating-key"
	testSalt = "rotating-salt"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService()

	token, err := svc.IssueToken("operator-credential", TokenTTL, testKey, testSalt)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	err = svc.ValidateToken(token, "operator-credential", testKey, testSalt)
	assert.NoError(t, err)

	claims, err := svc.DecodeToken(token, testKey, testSalt)
	require.NoError(t, err)
	assert.Equal(t, "operator-credential", claims.Subject)
	// Expiry and issuance come from the same clock read
	assert.Equal(t, claims.IssuedAt+int64(TokenTTL/time.Second), claims.ExpiresAt)
}

func TestTokenSubjectBinding(t *testing.T) {
	svc := NewTokenService()

	token, err := svc.IssueToken("operator-a", TokenTTL, testKey, testSalt)
	require.NoError(t, err)

	err = svc.ValidateToken(token, "operator-b", testKey, testSalt)
	assert.ErrorIs(t, err, interfaces.ErrTokenInvalid)
}

func TestTokenExpiry(t *testing.T) {
	svc := NewTokenService()

	token, err := svc.IssueToken("operator-a", -time.Minute, testKey, testSalt)
	require.NoError(t, err)

	err = svc.ValidateToken(token, "operator-a", testKey, testSalt)
	assert.ErrorIs(t, err, interfaces.ErrTokenExpired)
}

func TestTokenKeyRotationInvalidates(t *testing.T) {
	svc := NewTokenService()

	token, err := svc.IssueToken("operator-a", TokenTTL, testKey, testSalt)
	require.NoError(t, err)

	err = svc.ValidateToken(token, "operator-a", "rotated-key", testSalt)
	assert.ErrorIs(t, err, interfaces.ErrTokenInvalid)

	err = svc.ValidateToken(token, "operator-a", testKey, "rotated-salt")
	assert.ErrorIs(t, err, interfaces.ErrTokenInvalid)
}

func TestTokenRejectsGarbage(t *testing.T) {
	svc := NewTokenService()

	err := svc.ValidateToken("!!!not-base64url!!!", "operator-a", testKey, testSalt)
	assert.ErrorIs(t, err, interfaces.ErrTokenInvalid)

	err = svc.ValidateToken("c2hvcnQ", "operator-a", testKey, testSalt)
	assert.ErrorIs(t, err, interfaces.ErrTokenInvalid)
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewTokenService()

	first, err := svc.IssueToken("operator-a", TokenTTL, testKey, testSalt)
	require.NoError(t, err)
	second, err := svc.IssueToken("operator-a", TokenTTL, testKey, testSalt)
	require.NoError(t, err)

	// Fresh nonce per token
	assert.NotEqual(t, first, second)
}
