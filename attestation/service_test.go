package attestation

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trustedcore/attestation-gateway/cryptoutils"
	"github.com/trustedcore/attestation-gateway/interfaces"
	"github.com/trustedcore/attestation-gateway/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSecrets() interfaces.SecretStore {
	return secrets.NewStaticStore(map[string]string{
		interfaces.AttestationEncryptionKeyName:  "test-encryption-key",
		interfaces.AttestationEncryptionSaltName: "test-encryption-salt",
	})
}

func testRequest() Request {
	return Request{
		Protocol: TrustedProtocol,
		Proof:    []byte("proof-bytes"),
		Subject:  "operator-credential",
	}
}

// collect runs Attest and waits for the callback.
func collect(t *testing.T, svc *Service, req Request) (string, error) {
	t.Helper()

	type outcome struct {
		token string
		err   error
	}
	ch := make(chan outcome, 1)

	err := svc.Attest(context.Background(), req, func(token string, err error) {
		ch <- outcome{token, err}
	})
	require.NoError(t, err)

	select {
	case out := <-ch:
		return out.token, out.err
	case <-time.After(5 * time.Second):
		t.Fatal("attestation callback never fired")
		return "", nil
	}
}

func TestAttestSuccessIssuesToken(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier(TrustedProtocol, TrustedVerifier{})

	before := time.Now()
	token, err := collect(t, svc, testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The embedded expiry is issuance + 24h
	claims, err := NewTokenService().DecodeToken(token, "test-encryption-key", "test-encryption-salt")
	require.NoError(t, err)
	assert.Equal(t, "operator-credential", claims.Subject)
	expectedExpiry := claims.IssuedAt + int64(TokenTTL/time.Second)
	assert.Equal(t, expectedExpiry, claims.ExpiresAt)
	assert.GreaterOrEqual(t, claims.IssuedAt, before.Unix())
}

func TestAttestUnregisteredProtocol(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())

	req := testRequest()
	req.Protocol = "unknown-protocol"
	err := svc.Attest(context.Background(), req, func(string, error) {
		t.Error("callback must not fire for unregistered protocol")
	})
	assert.ErrorIs(t, err, interfaces.ErrProtocolNotFound)
}

func TestAttestEmptyProof(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier(TrustedProtocol, TrustedVerifier{})

	req := testRequest()
	req.Proof = nil
	err := svc.Attest(context.Background(), req, func(string, error) {
		t.Error("callback must not fire for empty proof")
	})
	assert.ErrorIs(t, err, ErrEmptyProof)
}

func TestAttestRejection(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier("rejecting", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		done(interfaces.AttestationFailed("measurement mismatch"), nil)
	}))

	req := testRequest()
	req.Protocol = "rejecting"
	token, err := collect(t, svc, req)
	assert.Empty(t, token)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "measurement mismatch", rejection.Reason)
}

func TestAttestTransportFailure(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier("flaky", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		done(interfaces.AttestationResult{}, assert.AnError)
	}))

	req := testRequest()
	req.Protocol = "flaky"
	token, err := collect(t, svc, req)
	assert.Empty(t, token)
	require.ErrorIs(t, err, assert.AnError)

	// Transport failures are distinct from semantic rejections
	var rejection *RejectionError
	assert.False(t, errors.As(err, &rejection))
}

func TestAttestSealsTokenUnderDerivedKey(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)

	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier("sealing", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		done(interfaces.AttestationSucceeded(publicKey), nil)
	}))

	req := testRequest()
	req.Protocol = "sealing"
	req.PublicKey = publicKeyDER

	sealedToken, err := collect(t, svc, req)
	require.NoError(t, err)
	require.NotEmpty(t, sealedToken)

	// The response is Base64 ciphertext that decrypts to a valid token
	ciphertext, err := base64.StdEncoding.DecodeString(sealedToken)
	require.NoError(t, err)

	clearToken, err := cryptoutils.DecryptWithPrivateKey(privateKey, ciphertext)
	require.NoError(t, err)

	claims, err := NewTokenService().DecodeToken(string(clearToken), "test-encryption-key", "test-encryption-salt")
	require.NoError(t, err)
	assert.Equal(t, "operator-credential", claims.Subject)
}

func TestAttestSealingFailsClosed(t *testing.T) {
	issuer := new(MockTokenIssuer)
	issuer.On("IssueToken", "operator-credential", mock.Anything, mock.Anything, mock.Anything).
		Return("clear-token", nil)

	svc := NewService(issuer, testSecrets(), testLogger())
	svc.RegisterVerifier("sealing", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		// Derived key is garbage; sealing must fail
		done(interfaces.AttestationSucceeded([]byte("not a DER key")), nil)
	}))

	req := testRequest()
	req.Protocol = "sealing"
	token, err := collect(t, svc, req)

	assert.ErrorIs(t, err, ErrSealingFailure)
	// The unsealed token must never be returned on this path
	assert.Empty(t, token)
	issuer.AssertExpectations(t)
}

func TestAttestIgnoresSecondCompletion(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier("double", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		done(interfaces.AttestationSucceeded(nil), nil)
		done(interfaces.AttestationFailed("late rejection"), nil)
	}))

	fired := make(chan error, 2)
	req := testRequest()
	req.Protocol = "double"
	err := svc.Attest(context.Background(), req, func(token string, err error) {
		fired <- err
	})
	require.NoError(t, err)

	first := <-fired
	assert.NoError(t, first)

	select {
	case <-fired:
		t.Error("callback fired twice despite single-fire guard")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAttestVerifierTimeout(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.SetVerifyTimeout(50 * time.Millisecond)
	svc.RegisterVerifier("wedged", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		// Never completes
	}))

	req := testRequest()
	req.Protocol = "wedged"
	token, err := collect(t, svc, req)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAttestParentCancellationCompletes(t *testing.T) {
	svc := NewService(NewTokenService(), testSecrets(), testLogger())
	svc.RegisterVerifier("cancel-aware", VerifierFunc(func(ctx context.Context, proof, publicKey []byte, done interfaces.AttestationCallback) {
		// Honors cancellation by returning without its callback
		<-ctx.Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan error, 1)
	req := testRequest()
	req.Protocol = "cancel-aware"
	err := svc.Attest(ctx, req, func(token string, err error) {
		fired <- err
	})
	require.NoError(t, err)

	cancel()

	// The watchdog must complete the request so no caller blocks on a
	// verifier that never calls back.
	select {
	case err := <-fired:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired after parent context cancellation")
	}
}

func TestAttestSecretStoreFailure(t *testing.T) {
	svc := NewService(NewTokenService(), secrets.NewStaticStore(nil), testLogger())
	svc.RegisterVerifier(TrustedProtocol, TrustedVerifier{})

	token, err := collect(t, svc, testRequest())
	assert.Empty(t, token)
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}
