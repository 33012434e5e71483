package attestation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/trustedcore/attestation-gateway/interfaces"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters for deriving the token cipher key from the rotating
// (key, salt) pair.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// TokenClaims is the plaintext content of an attestation token.
type TokenClaims struct {
	// Subject is the credential the token is bound to.
	Subject string `json:"subject"`

	// IssuedAt and ExpiresAt are unix timestamps (seconds).
	IssuedAt  int64 `json:"issued_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// TokenService issues and validates attestation tokens. A token is the
// claims JSON encrypted with AES-256-GCM under argon2id(key, salt),
// base64url-encoded. Rotating the key/salt pair invalidates all
// outstanding tokens at once.
type TokenService struct{}

// NewTokenService creates a token service. It is stateless; all key
// material arrives per call from the secret store.
func NewTokenService() *TokenService {
	return &TokenService{}
}

// IssueToken creates a token bound to subject, expiring ttl after the
// issuance instant. Both timestamps come from the same clock read so the
// embedded expiry never drifts from issued_at + ttl.
func (s *TokenService) IssueToken(subject string, ttl time.Duration, encryptionKey, encryptionSalt string) (string, error) {
	issuedAt := time.Now()
	claims := TokenClaims{
		Subject:   subject,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(ttl).Unix(),
	}

	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode token claims: %w", err)
	}

	aesGCM, err := tokenCipher(encryptionKey, encryptionSalt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecodeToken decrypts a token and returns its claims without checking
// the subject binding or expiry.
func (s *TokenService) DecodeToken(token, encryptionKey, encryptionSalt string) (*TokenClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", interfaces.ErrTokenInvalid)
	}

	aesGCM, err := tokenCipher(encryptionKey, encryptionSalt)
	if err != nil {
		return nil, err
	}

	if len(raw) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("%w: too short", interfaces.ErrTokenInvalid)
	}

	nonce, ciphertext := raw[:aesGCM.NonceSize()], raw[aesGCM.NonceSize():]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed", interfaces.ErrTokenInvalid)
	}

	var claims TokenClaims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, fmt.Errorf("%w: malformed claims", interfaces.ErrTokenInvalid)
	}

	return &claims, nil
}

// ValidateToken checks that the token decrypts under the current key/salt
// pair, is bound to the given subject, and has not expired.
func (s *TokenService) ValidateToken(token, subject string, encryptionKey, encryptionSalt string) error {
	claims, err := s.DecodeToken(token, encryptionKey, encryptionSalt)
	if err != nil {
		return err
	}

	if claims.Subject != subject {
		return fmt.Errorf("%w: subject mismatch", interfaces.ErrTokenInvalid)
	}

	if time.Now().Unix() >= claims.ExpiresAt {
		return interfaces.ErrTokenExpired
	}

	return nil
}

// tokenCipher builds the AES-GCM cipher for a key/salt pair.
func tokenCipher(encryptionKey, encryptionSalt string) (cipher.AEAD, error) {
	derived := argon2.IDKey([]byte(encryptionKey), []byte(encryptionSalt), argonTime, argonMemory, argonThreads, argonKeyLen)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
