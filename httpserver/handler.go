package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/trustedcore/attestation-gateway/attestation"
	"github.com/trustedcore/attestation-gateway/interfaces"
	"github.com/trustedcore/attestation-gateway/metadata"
	"github.com/trustedcore/attestation-gateway/metrics"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// attestRequestBody is the wire form of an /attest call.
type attestRequestBody struct {
	AttestationRequest string `json:"attestation_request"`
	PublicKey          string `json:"public_key,omitempty"`
}

// Handler processes HTTP requests for the attestation gateway. It wires
// the attestation dispatcher, the per-category metadata providers, and
// the credential resolver together, and owns all status-code mapping.
type Handler struct {
	attestation *attestation.Service
	validator   interfaces.TokenValidator
	resolver    interfaces.CredentialResolver
	secrets     interfaces.SecretStore
	providers   map[metadata.Category]*metadata.SnapshotProvider
	metrics     *metrics.MetricsServer
	log         *slog.Logger
}

// NewHandler creates a request handler with the specified dependencies.
//
// Parameters:
//   - attestationSvc: dispatcher over registered protocol verifiers
//   - validator: attestation token validator for the metadata gate
//   - resolver: credential-to-identity resolution
//   - secrets: provisioned key/salt and metadata path material
//   - providers: one metadata provider per served category
//   - m: counters; may be nil in tests
//   - log: structured logger
func NewHandler(attestationSvc *attestation.Service, validator interfaces.TokenValidator, resolver interfaces.CredentialResolver, secrets interfaces.SecretStore, providers []*metadata.SnapshotProvider, m *metrics.MetricsServer, log *slog.Logger) *Handler {
	byCategory := make(map[metadata.Category]*metadata.SnapshotProvider, len(providers))
	for _, provider := range providers {
		byCategory[provider.Category()] = provider
	}

	return &Handler{
		attestation: attestationSvc,
		validator:   validator,
		resolver:    resolver,
		secrets:     secrets,
		providers:   byCategory,
		metrics:     m,
		log:         log,
	}
}

// HandleAttest processes attestation requests from operator nodes.
//
// URL format: POST /attest
// Request body: {"attestation_request": "<proof>", "public_key": "<base64, optional>"}
// Response: {"status":"success","body":{"attestation_token":"<token>"}}
//
// The operator's registered protocol selects the verifier. On success the
// issued token expires 24 hours after issuance; if the verifier derived
// an enclave public key from the proof, the token is sealed under it and
// Base64-encoded.
func (h *Handler) HandleAttest(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	credential := credentialFromContext(r.Context())

	var body attestRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		h.log.Debug("Attest request body decode failed", "err", err)
		Error(w, "request body is not a valid json", http.StatusBadRequest, "")
		return
	}

	if body.AttestationRequest == "" {
		Error(w, "no attestation_request attached", http.StatusBadRequest, "")
		return
	}

	var publicKey []byte
	if body.PublicKey != "" {
		decoded, err := base64.StdEncoding.DecodeString(body.PublicKey)
		if err != nil {
			Error(w, "public key is not valid base64", http.StatusBadRequest, "")
			return
		}
		publicKey = decoded
	}

	type attestOutcome struct {
		token string
		err   error
	}
	outcome := make(chan attestOutcome, 1)

	req := attestation.Request{
		Protocol:  identity.Protocol,
		Proof:     []byte(body.AttestationRequest),
		PublicKey: publicKey,
		Subject:   credential,
	}

	err := h.attestation.Attest(r.Context(), req, func(token string, err error) {
		outcome <- attestOutcome{token, err}
	})
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrProtocolNotFound):
			h.log.Info("Attestation failure, invalid protocol",
				slog.String("protocol", identity.Protocol),
				slog.String("contact", identity.Contact))
			h.countAttestation("error")
			Error(w, StatusProtocolNotFound, http.StatusInternalServerError, "")
		case errors.Is(err, attestation.ErrEmptyProof):
			h.countAttestation("error")
			Error(w, "no attestation_request attached", http.StatusBadRequest, "")
		default:
			h.countAttestation("error")
			Error(w, StatusAttestationFailure, http.StatusInternalServerError, "")
		}
		return
	}

	// The dispatcher guarantees exactly one completion, so this blocks
	// only until the verifier deadline at worst. A client disconnect does
	// not abort the verifier; its late result is simply discarded with
	// the connection.
	result := <-outcome

	if result.err != nil {
		var rejection *attestation.RejectionError
		if errors.As(result.err, &rejection) {
			h.countAttestation("rejected")
			Error(w, rejection.Reason, http.StatusUnauthorized, "")
			return
		}

		// Transport and sealing failures share a generic status so no
		// proof or token material leaks through error bodies.
		h.countAttestation("error")
		Error(w, StatusAttestationFailure, http.StatusInternalServerError, "")
		return
	}

	h.countAttestation("success")
	Success(w, map[string]interface{}{"attestation_token": result.token})
}

// MetadataHandler returns the refresh handler for one metadata category.
// The response is the raw JSON document, not the envelope.
func (h *Handler) MetadataHandler(category metadata.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.providers[category]
		if !ok {
			h.countRefresh(category, "error")
			Error(w, StatusError, http.StatusInternalServerError, "metadata category not served")
			return
		}

		document, err := provider.GetMetadata(r.Context())
		if err != nil {
			h.log.Warn("Metadata refresh failed",
				slog.String("category", string(category)), "err", err)
			h.countRefresh(category, "error")
			Error(w, StatusError, http.StatusInternalServerError, "error processing "+string(category)+" refresh")
			return
		}

		h.countRefresh(category, "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(document))
	}
}

func (h *Handler) countAttestation(status string) {
	if h.metrics != nil {
		h.metrics.AttestationResults.WithLabelValues(status).Inc()
	}
}

func (h *Handler) countRefresh(category metadata.Category, result string) {
	if h.metrics != nil {
		h.metrics.MetadataRefreshes.WithLabelValues(string(category), result).Inc()
	}
}
