// Package cryptoutils implements response sealing for the attestation
// gateway. Attestation tokens are sealed under an enclave-derived public
// key using ECIES (ECDH key agreement, SHA-256 key derivation, AES-GCM),
// so only the enclave holding the matching private key can read them.
package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// gcmNonceSize is the standard 12-byte AES-GCM nonce.
const gcmNonceSize = 12

// ParsePublicKey decodes a DER-encoded (PKIX/X.509 SubjectPublicKeyInfo)
// ECDSA public key, the format enclaves embed in attestation proofs.
func ParsePublicKey(publicKeyDER []byte) (*ecdsa.PublicKey, error) {
	keyAny, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := keyAny.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}

	return publicKey, nil
}

// EncryptWithPublicKey encrypts data under a DER-encoded ECDSA public key.
// A fresh ephemeral key is generated per call, providing forward secrecy.
//
// Output format: [ephemeral key length (2 bytes)][ephemeral key][nonce][ciphertext]
func EncryptWithPublicKey(publicKeyDER []byte, data []byte) ([]byte, error) {
	publicKey, err := ParsePublicKey(publicKeyDER)
	if err != nil {
		return nil, err
	}

	ephemeralKey, err := ecdsa.GenerateKey(publicKey.Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	// Derive the shared secret via ECDH
	x, _ := publicKey.Curve.ScalarMult(publicKey.X, publicKey.Y, ephemeralKey.D.Bytes())
	sharedSecret := sha256.Sum256(x.Bytes())

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, data, nil)

	ephemeralPub := elliptic.Marshal(ephemeralKey.Curve, ephemeralKey.X, ephemeralKey.Y)

	result := make([]byte, 2+len(ephemeralPub)+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(result[0:2], uint16(len(ephemeralPub)))
	copy(result[2:], ephemeralPub)
	copy(result[2+len(ephemeralPub):], nonce)
	copy(result[2+len(ephemeralPub)+len(nonce):], ciphertext)

	return result, nil
}

// DecryptWithPrivateKey reverses EncryptWithPublicKey using the matching
// private key. In production this runs inside the operator's enclave; the
// gateway uses it only in tests to verify the sealed-token round trip.
func DecryptWithPrivateKey(privateKey *ecdsa.PrivateKey, encryptedData []byte) ([]byte, error) {
	if len(encryptedData) < 2 {
		return nil, errors.New("encrypted data too short")
	}

	ephemeralKeyLen := binary.BigEndian.Uint16(encryptedData[0:2])
	if len(encryptedData) < int(2+ephemeralKeyLen+gcmNonceSize) {
		return nil, errors.New("encrypted data has invalid format")
	}

	ephemeralKeyBytes := encryptedData[2 : 2+ephemeralKeyLen]
	x, y := elliptic.Unmarshal(privateKey.Curve, ephemeralKeyBytes)
	if x == nil {
		return nil, errors.New("failed to unmarshal ephemeral public key")
	}

	xShared, _ := privateKey.Curve.ScalarMult(x, y, privateKey.D.Bytes())
	sharedSecret := sha256.Sum256(xShared.Bytes())

	nonceStart := 2 + int(ephemeralKeyLen)
	nonce := encryptedData[nonceStart : nonceStart+gcmNonceSize]
	ciphertext := encryptedData[nonceStart+gcmNonceSize:]

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
