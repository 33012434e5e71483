package interfaces

import (
	"context"
	"errors"
	"time"
)

// AttestationResult is the outcome of verifying a single attestation
// proof. It is produced exactly once per Verify call.
type AttestationResult struct {
	succeeded bool
	reason    string
	publicKey []byte
}

// AttestationSucceeded builds a success outcome. publicKey may be nil; if
// present it is the DER-encoded enclave public key derived from the proof
// and the issued token must be sealed under it.
func AttestationSucceeded(publicKey []byte) AttestationResult {
	return AttestationResult{succeeded: true, publicKey: publicKey}
}

// AttestationFailed builds a semantic failure outcome with the verifier's
// reason. The reason is surfaced to the caller; it must not contain proof
// material.
func AttestationFailed(reason string) AttestationResult {
	return AttestationResult{reason: reason}
}

// Succeeded reports whether the proof verified.
func (r AttestationResult) Succeeded() bool { return r.succeeded }

// Reason returns the failure reason for rejected proofs.
func (r AttestationResult) Reason() string { return r.reason }

// PublicKey returns the derived enclave public key, or nil.
func (r AttestationResult) PublicKey() []byte { return r.publicKey }

// AttestationCallback receives the verification outcome. err is non-nil
// only for transport-level failures, distinct from a semantic rejection
// which arrives as a failed AttestationResult with err == nil.
type AttestationCallback func(result AttestationResult, err error)

// Verifier validates attestation proofs for one protocol. Verify must
// invoke the callback exactly once; callers defensively ignore any second
// invocation.
type Verifier interface {
	Verify(ctx context.Context, proof []byte, publicKey []byte, done AttestationCallback)
}

// ErrProtocolNotFound is returned when no verifier is registered for the
// requested protocol.
var ErrProtocolNotFound = errors.New("protocol not found")

// TokenIssuer produces a signed, expiring attestation token bound to the
// caller's presented credential. Issuance and expiry are derived from a
// single instant, so the embedded expiry is exactly issuance plus ttl.
type TokenIssuer interface {
	IssueToken(subject string, ttl time.Duration, encryptionKey, encryptionSalt string) (string, error)
}

// Token validation failures.
var (
	ErrTokenExpired = errors.New("attestation token expired")
	ErrTokenInvalid = errors.New("attestation token invalid")
)

// TokenValidator checks an attestation token against the credential that
// presented it and the current key/salt pair.
type TokenValidator interface {
	ValidateToken(token, subject string, encryptionKey, encryptionSalt string) error
}
