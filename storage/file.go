package storage

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// FileBackend implements CloudStorage over the local file system, for
// development and tests. Pre-signed URLs are file URLs with an expiry and
// an HMAC signature query so their shape matches the S3 backend.
type FileBackend struct {
	baseDir    string
	signingKey []byte
	preSignTTL time.Duration
	log        *slog.Logger
}

// NewFileBackend creates a file storage backend rooted at baseDir.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	// Per-process key; file URLs are only meaningful locally
	signingKey := make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	return &FileBackend{
		baseDir:    baseDir,
		signingKey: signingKey,
		preSignTTL: DefaultPreSignTTL,
		log:        log,
	}, nil
}

// Download retrieves a file by path relative to the base directory.
// Returns ErrObjectNotFound if the file doesn't exist.
func (b *FileBackend) Download(ctx context.Context, objectPath string) ([]byte, error) {
	filePath, err := b.filePath(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			b.log.Debug("Object not found", slog.String("path", filePath))
			return nil, interfaces.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// PreSignURL returns a file URL carrying an expiry and HMAC signature.
func (b *FileBackend) PreSignURL(objectPath string) (string, error) {
	filePath, err := b.filePath(objectPath)
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(b.preSignTTL).Unix()

	mac := hmac.New(sha256.New, b.signingKey)
	fmt.Fprintf(mac, "%s:%d", filePath, expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	query := url.Values{}
	query.Set("expires", fmt.Sprintf("%d", expires))
	query.Set("signature", signature)

	return fmt.Sprintf("file://%s?%s", filePath, query.Encode()), nil
}

// Available reports whether the base directory is accessible.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	return err == nil
}

// filePath resolves an object path within the base directory, rejecting
// path traversal.
func (b *FileBackend) filePath(objectPath string) (string, error) {
	cleaned := filepath.Clean("/" + objectPath)
	full := filepath.Join(b.baseDir, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(b.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object path: %s", objectPath)
	}
	return full, nil
}
