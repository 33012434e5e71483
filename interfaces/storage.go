package interfaces

import (
	"context"
	"errors"
)

// Storage error sentinels.
var (
	// ErrObjectNotFound indicates the requested object does not exist in
	// the backend.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBackendUnavailable indicates the storage backend could not be
	// reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// CloudStorage provides read access to metadata objects plus pre-signed
// URL generation. Download fetches raw object bytes by path. PreSignURL
// returns a time-limited, credential-free URL for the same path so the
// backend's credentials never reach API callers.
type CloudStorage interface {
	Download(ctx context.Context, path string) ([]byte, error)
	PreSignURL(path string) (string, error)
}
