package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// AttestationTokenHeader carries the proof-of-attestation token on
// protected metadata routes.
const AttestationTokenHeader = "Attestation-Token"

type contextKey int

const (
	credentialContextKey contextKey = iota
	identityContextKey
)

// bearerCredential extracts the bearer credential from the Authorization
// header.
func bearerCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// credentialFromContext returns the presented credential stored by the
// auth middleware.
func credentialFromContext(ctx context.Context) string {
	credential, _ := ctx.Value(credentialContextKey).(string)
	return credential
}

// identityFromContext returns the resolved identity stored by the auth
// middleware.
func identityFromContext(ctx context.Context) *interfaces.OperatorIdentity {
	identity, _ := ctx.Value(identityContextKey).(*interfaces.OperatorIdentity)
	return identity
}

// WithRole wraps a handler with bearer credential resolution and a role
// check. The resolved identity and raw credential are stored on the
// request context for the handler.
func (h *Handler) WithRole(role interfaces.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := bearerCredential(r)
		if credential == "" {
			Error(w, StatusUnauthorized, http.StatusUnauthorized, "")
			return
		}

		identity, err := h.resolver.Resolve(credential)
		if err != nil {
			h.log.Debug("Credential resolution failed", "err", err)
			Error(w, StatusUnauthorized, http.StatusUnauthorized, "")
			return
		}

		if !identity.HasRole(role) {
			h.log.Info("Credential lacks required role",
				slog.String("contact", identity.Contact),
				slog.String("role", string(role)))
			Error(w, StatusUnauthorized, http.StatusUnauthorized, "")
			return
		}

		ctx := context.WithValue(r.Context(), credentialContextKey, credential)
		ctx = context.WithValue(ctx, identityContextKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// WithAttestation wraps a handler with the proof-of-attestation gate: the
// Attestation-Token header must validate against the presented credential
// under the current key/salt pair. Runs after WithRole.
func (h *Handler) WithAttestation(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AttestationTokenHeader)
		if token == "" {
			Error(w, StatusUnauthorized, http.StatusUnauthorized, "attestation token required")
			return
		}

		credential := credentialFromContext(r.Context())

		encryptionKey, err := h.secrets.Get(interfaces.AttestationEncryptionKeyName)
		if err != nil {
			h.log.Error("Failed to read attestation encryption key", "err", err)
			Error(w, StatusError, http.StatusInternalServerError, "")
			return
		}

		encryptionSalt, err := h.secrets.Get(interfaces.AttestationEncryptionSaltName)
		if err != nil {
			h.log.Error("Failed to read attestation encryption salt", "err", err)
			Error(w, StatusError, http.StatusInternalServerError, "")
			return
		}

		if err := h.validator.ValidateToken(token, credential, encryptionKey, encryptionSalt); err != nil {
			h.log.Info("Attestation token rejected", "err", err)
			Error(w, StatusUnauthorized, http.StatusUnauthorized, "")
			return
		}

		next(w, r)
	}
}
