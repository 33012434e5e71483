package attestation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
	"github.com/google/go-tdx-guest/verify"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

// DCAPProtocol is the registry name for the TDX DCAP verifier.
const DCAPProtocol = "trusted-tdx"

// DCAPVerifier validates Intel TDX DCAP quotes. Proofs arrive
// base64-encoded; when the caller supplies a public key, the quote's
// report data must bind it (first 32 bytes = SHA-256 of the DER key).
type DCAPVerifier struct {
	options *verify.Options
	log     *slog.Logger
}

// NewDCAPVerifier creates a DCAP verifier with default collateral
// verification options.
func NewDCAPVerifier(log *slog.Logger) *DCAPVerifier {
	return &DCAPVerifier{
		options: verify.DefaultOptions(),
		log:     log,
	}
}

// Verify parses and verifies the quote, then checks the public key
// binding. The callback is invoked exactly once. All failures here are
// semantic rejections; only panics in the TDX library would be transport
// failures, and those are not expected.
func (v *DCAPVerifier) Verify(ctx context.Context, proof []byte, publicKey []byte, done interfaces.AttestationCallback) {
	rawQuote, err := base64.StdEncoding.DecodeString(string(proof))
	if err != nil {
		done(interfaces.AttestationFailed("attestation request is not valid base64"), nil)
		return
	}

	protoQuote, err := tdx_abi.QuoteToProto(rawQuote)
	if err != nil {
		v.log.Debug("Could not parse DCAP quote", "err", err)
		done(interfaces.AttestationFailed("could not parse quote"), nil)
		return
	}

	v4Quote, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		done(interfaces.AttestationFailed(fmt.Sprintf("unsupported quote type: %T", protoQuote)), nil)
		return
	}

	if err := verify.TdxQuote(protoQuote, v.options); err != nil {
		v.log.Debug("DCAP quote verification failed", "err", err)
		done(interfaces.AttestationFailed("quote verification failed"), nil)
		return
	}

	if len(publicKey) > 0 {
		expected := sha256.Sum256(publicKey)
		reportData := v4Quote.GetTdQuoteBody().GetReportData()
		if len(reportData) < len(expected) || !bytes.Equal(reportData[:len(expected)], expected[:]) {
			done(interfaces.AttestationFailed("report data does not bind public key"), nil)
			return
		}
	}

	done(interfaces.AttestationSucceeded(publicKey), nil)
}
