package interfaces

import "errors"

// Role restricts which API surface a credential may call.
type Role string

const (
	// RoleOperator marks credentials of operator nodes allowed to attest
	// and to fetch metadata snapshots.
	RoleOperator Role = "operator"

	// RoleClient marks ordinary client credentials. Clients cannot call
	// the attestation or refresh endpoints.
	RoleClient Role = "client"
)

// OperatorIdentity is the resolved form of a presented bearer credential.
type OperatorIdentity struct {
	// Contact is an operator-supplied identifier used in logs only.
	Contact string

	// Protocol names the attestation protocol this operator registered
	// with. It selects the verifier for /attest calls.
	Protocol string

	// Roles lists the roles granted to the credential.
	Roles []Role
}

// HasRole reports whether the identity carries the given role.
func (id *OperatorIdentity) HasRole(role Role) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ErrCredentialNotFound is returned by CredentialResolver when the
// presented credential is unknown.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialResolver maps a presented bearer credential to an identity.
// Implementations are externally synchronized and safe for concurrent use.
type CredentialResolver interface {
	Resolve(credential string) (*OperatorIdentity, error)
}

// Secret names provisioned by the external secret store. The gateway only
// reads these; rotation is handled by whoever provisions them.
const (
	AttestationEncryptionKeyName  = "attestation_encryption_key"
	AttestationEncryptionSaltName = "attestation_encryption_salt"
)

// ErrSecretNotFound is returned by SecretStore for unknown secret names.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore provides read access to provisioned secrets: token
// encryption key/salt pairs and metadata object paths. Values are
// read-only from the gateway's point of view.
type SecretStore interface {
	Get(name string) (string, error)
}
