package httpserver

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// StaticResolver resolves credentials from a fixed in-memory table,
// loaded at startup from a provisioning file. The table is never mutated
// after construction.
type StaticResolver struct {
	identities map[string]*interfaces.OperatorIdentity
}

// credentialRecord is the on-disk form of one provisioned credential.
type credentialRecord struct {
	Contact  string   `json:"contact"`
	Protocol string   `json:"protocol"`
	Roles    []string `json:"roles"`
}

// NewStaticResolver creates a resolver over the given identities.
func NewStaticResolver(identities map[string]*interfaces.OperatorIdentity) *StaticResolver {
	copied := make(map[string]*interfaces.OperatorIdentity, len(identities))
	for credential, identity := range identities {
		copied[credential] = identity
	}
	return &StaticResolver{identities: copied}
}

// LoadStaticResolver reads a JSON object mapping credentials to identity
// records:
//
//	{"<credential>": {"contact": "...", "protocol": "...", "roles": ["operator"]}}
func LoadStaticResolver(r io.Reader) (*StaticResolver, error) {
	var records map[string]credentialRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode credentials file: %w", err)
	}

	identities := make(map[string]*interfaces.OperatorIdentity, len(records))
	for credential, record := range records {
		roles := make([]interfaces.Role, 0, len(record.Roles))
		for _, role := range record.Roles {
			roles = append(roles, interfaces.Role(role))
		}
		identities[credential] = &interfaces.OperatorIdentity{
			Contact:  record.Contact,
			Protocol: record.Protocol,
			Roles:    roles,
		}
	}

	return NewStaticResolver(identities), nil
}

// Resolve returns the identity for a credential or ErrCredentialNotFound.
func (r *StaticResolver) Resolve(credential string) (*interfaces.OperatorIdentity, error) {
	identity, ok := r.identities[credential]
	if !ok {
		return nil, interfaces.ErrCredentialNotFound
	}
	return identity, nil
}
