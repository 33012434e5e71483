/*
Package attestation implements the gateway's attestation core: a
protocol-polymorphic dispatcher over pluggable verifiers, the attestation
token service, and a DCAP (TDX) verifier.

# Dispatch

Verifiers register under a protocol name. An operator's registered
protocol selects the verifier for its proofs; an unregistered protocol
fails fast with ErrProtocolNotFound before any dispatch happens.

Verification completes asynchronously through a callback fired exactly
once. The dispatcher guards the completion path so a misbehaving verifier
firing twice cannot double-write a response, and applies a deadline so a
verifier that never completes cannot wedge a request.

# Tokens

On success the dispatcher issues a token bound to the caller's presented
credential, expiring 24 hours after issuance, encrypted under a key
derived (argon2id) from the rotating key/salt pair held by the secret
store. If the verifier derived an enclave public key from the proof, the
token is sealed under that key and Base64-encoded; a sealing failure is
fatal and the clear token is never returned on that path.
*/
package attestation
