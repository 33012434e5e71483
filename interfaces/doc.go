/*
Package interfaces defines the contracts between the attestation gateway
components without implementation details.

# System Components

The gateway works with the following collaborators:

  - CredentialResolver: maps a presented bearer credential to an operator
    identity with roles and a registered attestation protocol
  - SecretStore: read-only provider for key/salt material and metadata
    object paths
  - CloudStorage: object download and pre-signed URL generation
  - Verifier: per-protocol attestation proof verification with asynchronous
    single-fire completion
  - TokenIssuer / TokenValidator: attestation token lifecycle

# Security Model

Attestation tokens are bound to the presented operator credential and
expire 24 hours after issuance. When a verifier derives an enclave public
key from the proof, the issued token is sealed under that key so only the
requesting enclave can read it. Raw storage credentials never cross the
API boundary: embedded storage locations are rewritten into time-limited
pre-signed URLs before metadata documents are returned.
*/
package interfaces
