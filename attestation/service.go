package attestation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trustedcore/attestation-gateway/cryptoutils"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

// TokenTTL is the fixed lifetime of an attestation token. Tokens are
// never refreshed in place; a new /attest call issues a new token.
const TokenTTL = 24 * time.Hour

// DefaultVerifyTimeout bounds a single verifier call. The external
// verifier is expected to enforce its own limit; this deadline only keeps
// a wedged verifier from holding the request forever.
const DefaultVerifyTimeout = 30 * time.Second

// ErrEmptyProof is returned synchronously when the request carries no
// attestation proof.
var ErrEmptyProof = errors.New("no attestation_request attached")

// RejectionError carries a verifier's semantic rejection. The reason is
// surfaced to the caller as the response status; it never contains the
// raw proof.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// ErrSealingFailure marks a failure while sealing a token under the
// enclave public key. The path fails closed: the clear token is discarded.
var ErrSealingFailure = errors.New("attestation sealing failure")

// Request carries one attestation attempt through the dispatcher.
// Instances are request-scoped and never persisted.
type Request struct {
	// Protocol selects the verifier; it comes from the operator's
	// registered credential, not from the request body.
	Protocol string

	// Proof is the opaque attestation evidence.
	Proof []byte

	// PublicKey optionally carries the caller's DER-encoded public key
	// for response sealing.
	PublicKey []byte

	// Subject is the caller's presented credential; the issued token is
	// bound to it.
	Subject string
}

// TokenCallback receives the issued (possibly sealed) token, or an error
// from the taxonomy: *RejectionError for semantic failures,
// ErrSealingFailure for fail-closed sealing errors, anything else for
// transport-level verifier failures.
type TokenCallback func(token string, err error)

// Service dispatches attestation requests to protocol-specific verifiers
// and turns successful outcomes into bound, expiring tokens. It holds no
// cross-request mutable state beyond the verifier registry, which is
// frozen before serving starts.
type Service struct {
	mu        sync.RWMutex
	verifiers map[string]interfaces.Verifier

	issuer        interfaces.TokenIssuer
	secrets       interfaces.SecretStore
	verifyTimeout time.Duration
	log           *slog.Logger
}

// NewService creates an attestation service with an empty verifier
// registry.
func NewService(issuer interfaces.TokenIssuer, secrets interfaces.SecretStore, log *slog.Logger) *Service {
	return &Service{
		verifiers:     make(map[string]interfaces.Verifier),
		issuer:        issuer,
		secrets:       secrets,
		verifyTimeout: DefaultVerifyTimeout,
		log:           log,
	}
}

// SetVerifyTimeout overrides the per-call verifier deadline.
func (s *Service) SetVerifyTimeout(d time.Duration) {
	s.verifyTimeout = d
}

// RegisterVerifier registers a verifier for a protocol name, replacing
// any previous registration.
func (s *Service) RegisterVerifier(protocol string, verifier interfaces.Verifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiers[protocol] = verifier
}

// Attest routes the request to the registered verifier and, on success,
// issues a token through the callback.
//
// Synchronous errors (no dispatch happened): ErrProtocolNotFound for an
// unregistered protocol, ErrEmptyProof for a missing proof. All other
// outcomes arrive through the callback, which is invoked exactly once
// even if the verifier misbehaves, exceeds its deadline, or returns
// without completing after the request context is canceled.
func (s *Service) Attest(ctx context.Context, req Request, done TokenCallback) error {
	s.mu.RLock()
	verifier, ok := s.verifiers[req.Protocol]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrProtocolNotFound, req.Protocol)
	}

	if len(req.Proof) == 0 {
		return ErrEmptyProof
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)

	var once sync.Once
	deliver := func(result interfaces.AttestationResult, err error) bool {
		delivered := false
		once.Do(func() {
			delivered = true
			cancel()
			s.finish(req, result, err, done)
		})
		return delivered
	}

	complete := func(result interfaces.AttestationResult, err error) {
		if !deliver(result, err) {
			// Contract violation by the verifier; the first outcome won.
			s.log.Warn("Verifier completion ignored, outcome already delivered",
				slog.String("protocol", req.Protocol))
		}
	}

	go verifier.Verify(verifyCtx, req.Proof, req.PublicKey, complete)

	// Watchdog: a verifier that wedges past the deadline, or one that
	// honors cancellation by returning without its callback, must still
	// complete the request. After a normal completion cancel() wakes this
	// goroutine and deliver is a no-op.
	go func() {
		<-verifyCtx.Done()
		deliver(interfaces.AttestationResult{}, fmt.Errorf("verification aborted for %s: %w", req.Protocol, verifyCtx.Err()))
	}()

	return nil
}

// finish runs the post-verification path: token issuance and optional
// sealing. Called exactly once per request.
func (s *Service) finish(req Request, result interfaces.AttestationResult, verifyErr error, done TokenCallback) {
	if verifyErr != nil {
		s.log.Info("Attestation transport failure",
			slog.String("protocol", req.Protocol), "err", verifyErr)
		done("", verifyErr)
		return
	}

	if !result.Succeeded() {
		s.log.Info("Attestation rejected",
			slog.String("protocol", req.Protocol),
			slog.String("reason", result.Reason()))
		done("", &RejectionError{Reason: result.Reason()})
		return
	}

	encryptionKey, err := s.secrets.Get(interfaces.AttestationEncryptionKeyName)
	if err != nil {
		s.log.Error("Failed to read attestation encryption key", "err", err)
		done("", fmt.Errorf("secret store error: %w", err))
		return
	}

	encryptionSalt, err := s.secrets.Get(interfaces.AttestationEncryptionSaltName)
	if err != nil {
		s.log.Error("Failed to read attestation encryption salt", "err", err)
		done("", fmt.Errorf("secret store error: %w", err))
		return
	}

	token, err := s.issuer.IssueToken(req.Subject, TokenTTL, encryptionKey, encryptionSalt)
	if err != nil {
		s.log.Error("Failed to issue attestation token", "err", err)
		done("", fmt.Errorf("token issuance error: %w", err))
		return
	}

	if derivedKey := result.PublicKey(); derivedKey != nil {
		sealed, err := cryptoutils.EncryptWithPublicKey(derivedKey, []byte(token))
		if err != nil {
			// Fail closed: the clear token must not leave this branch.
			s.log.Warn("Failed to seal attestation token", "err", err)
			done("", fmt.Errorf("%w: %v", ErrSealingFailure, err))
			return
		}
		token = base64.StdEncoding.EncodeToString(sealed)
	}

	done(token, nil)
}
