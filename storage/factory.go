package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// Factory creates CloudStorage backends from URI strings.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// BackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - s3:// - Amazon S3 or compatible object storage
//   - file:// - Local filesystem storage
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) BackendFor(locationURI string) (interfaces.CloudStorage, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		return f.createS3Backend(u)
	case "file":
		return f.createFileBackend(u)
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", u.Scheme)
	}
}

// createS3Backend creates an S3 backend from a URI.
// URI format: s3://[accessKey:secretKey@]bucket/prefix?region=...&endpoint=...
func (f *Factory) createS3Backend(u *url.URL) (interfaces.CloudStorage, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket name in S3 URI")
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	f.log.Debug("Creating S3 backend",
		slog.String("bucket", bucket),
		slog.String("region", region))

	return NewS3Backend(bucket, u.Path, region, endpoint, accessKey, secretKey, f.log)
}

// createFileBackend creates a file backend from a URI.
// URI format: file:///var/lib/gateway/metadata/
func (f *Factory) createFileBackend(u *url.URL) (interfaces.CloudStorage, error) {
	dir := u.Path
	if u.Host != "" {
		dir = u.Host + dir
	}
	if dir == "" {
		return nil, fmt.Errorf("missing directory in file URI")
	}

	f.log.Debug("Creating file backend", slog.String("dir", dir))

	return NewFileBackend(dir, f.log)
}
