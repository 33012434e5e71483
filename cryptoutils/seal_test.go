package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)

	return privateKey, publicKeyDER
}

func TestSealRoundTrip(t *testing.T) {
	privateKey, publicKeyDER := newTestKey(t)

	plaintext := []byte("attestation token payload")

	sealed, err := EncryptWithPublicKey(publicKeyDER, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	recovered, err := DecryptWithPrivateKey(privateKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestSealUniqueCiphertexts(t *testing.T) {
	_, publicKeyDER := newTestKey(t)

	first, err := EncryptWithPublicKey(publicKeyDER, []byte("data"))
	require.NoError(t, err)
	second, err := EncryptWithPublicKey(publicKeyDER, []byte("data"))
	require.NoError(t, err)

	// Fresh ephemeral key per call
	assert.NotEqual(t, first, second)
}

func TestEncryptRejectsMalformedKey(t *testing.T) {
	_, err := EncryptWithPublicKey([]byte("not a DER key"), []byte("data"))
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	privateKey, publicKeyDER := newTestKey(t)

	sealed, err := EncryptWithPublicKey(publicKeyDER, []byte("data"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = DecryptWithPrivateKey(privateKey, sealed)
	assert.Error(t, err)
}

func TestDecryptRejectsTruncatedInput(t *testing.T) {
	privateKey, _ := newTestKey(t)

	_, err := DecryptWithPrivateKey(privateKey, []byte{0x00})
	assert.Error(t, err)
}
