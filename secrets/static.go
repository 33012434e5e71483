package secrets

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// StaticStore serves secrets from a fixed in-memory map. Values are never
// mutated after construction, so reads need no synchronization.
type StaticStore struct {
	values map[string]string
}

// NewStaticStore creates a store over a copy of the given values.
func NewStaticStore(values map[string]string) *StaticStore {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticStore{values: copied}
}

// LoadStaticStore reads a flat JSON object of secret names to values,
// e.g. the output of a provisioning job.
func LoadStaticStore(r io.Reader) (*StaticStore, error) {
	var values map[string]string
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode secrets file: %w", err)
	}
	return NewStaticStore(values), nil
}

// Get returns the named secret or ErrSecretNotFound.
func (s *StaticStore) Get(name string) (string, error) {
	value, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", interfaces.ErrSecretNotFound, name)
	}
	return value, nil
}
