package httpserver

import (
	"encoding/json"
	"net/http"
)

// Well-known response status values. Verifier rejection reasons are used
// as the status verbatim, so this list is not closed.
const (
	StatusSuccess            = "success"
	StatusUnauthorized       = "unauthorized"
	StatusProtocolNotFound   = "protocol not found"
	StatusAttestationFailure = "attestation failure"
	StatusError              = "error"
)

// Success writes the uniform success envelope with HTTP 200.
func Success(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": StatusSuccess,
		"body":   body,
	})
}

// Error writes the uniform error envelope. message may be empty, in which
// case only the status field is emitted.
func Error(w http.ResponseWriter, errorStatus string, httpCode int, message string) {
	body := map[string]interface{}{
		"status": errorStatus,
	}
	if message != "" {
		body["message"] = message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(body)
}
