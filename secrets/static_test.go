package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

func TestStaticStoreGet(t *testing.T) {
	store := NewStaticStore(map[string]string{
		interfaces.AttestationEncryptionKeyName: "key-value",
	})

	value, err := store.Get(interfaces.AttestationEncryptionKeyName)
	require.NoError(t, err)
	assert.Equal(t, "key-value", value)
}

func TestStaticStoreMissing(t *testing.T) {
	store := NewStaticStore(nil)

	_, err := store.Get("unknown")
	assert.ErrorIs(t, err, interfaces.ErrSecretNotFound)
}

func TestStaticStoreCopiesInput(t *testing.T) {
	values := map[string]string{"name": "before"}
	store := NewStaticStore(values)
	values["name"] = "after"

	value, err := store.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "before", value)
}

func TestLoadStaticStore(t *testing.T) {
	store, err := LoadStaticStore(strings.NewReader(`{"partners_metadata_path":"partners/metadata.json"}`))
	require.NoError(t, err)

	value, err := store.Get("partners_metadata_path")
	require.NoError(t, err)
	assert.Equal(t, "partners/metadata.json", value)
}

func TestLoadStaticStoreRejectsInvalidJSON(t *testing.T) {
	_, err := LoadStaticStore(strings.NewReader("not json"))
	assert.Error(t, err)
}
