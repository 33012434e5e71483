// Package metadata serves versioned configuration snapshots to attested
// operator nodes. Each category (client, operator, key, key-acl, salt,
// partner) has its own provider instance reading a configured object path
// from the secret store. Documents are re-downloaded on every call: no
// caching, callers always see the freshest snapshot.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trustedcore/attestation-gateway/interfaces"
)

// ErrMetadataUnavailable covers every metadata retrieval failure: missing
// configured path, download failure, or decode failure. The boundary maps
// it to a single HTTP 500 without leaking backend detail.
var ErrMetadataUnavailable = errors.New("metadata unavailable")

// Category names a metadata document class.
type Category string

const (
	CategoryClient   Category = "client"
	CategoryOperator Category = "operator"
	CategoryKey      Category = "key"
	CategoryKeyACL   Category = "key-acl"
	CategorySalt     Category = "salt"
	CategoryPartner  Category = "partner"
)

// pathName returns the secret store key holding the category's object
// path.
func (c Category) pathName() string {
	switch c {
	case CategoryClient:
		return "clients_metadata_path"
	case CategoryOperator:
		return "operators_metadata_path"
	case CategoryKey:
		return "keys_metadata_path"
	case CategoryKeyACL:
		return "keys_acl_metadata_path"
	case CategorySalt:
		return "salts_metadata_path"
	case CategoryPartner:
		return "partners_metadata_path"
	default:
		return ""
	}
}

// locationParent returns the JSON key of the nested object whose
// `location` field must be rewritten into a pre-signed URL, or "" for
// categories served verbatim. Only partner documents embed a storage
// location today.
func (c Category) locationParent() string {
	if c == CategoryPartner {
		return "partners"
	}
	return ""
}

// SnapshotProvider fetches one category's metadata document.
type SnapshotProvider struct {
	category Category
	secrets  interfaces.SecretStore
	storage  interfaces.CloudStorage
	log      *slog.Logger
}

// NewSnapshotProvider creates a provider for the given category.
func NewSnapshotProvider(category Category, secrets interfaces.SecretStore, storage interfaces.CloudStorage, log *slog.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		category: category,
		secrets:  secrets,
		storage:  storage,
		log:      log,
	}
}

// Category returns the provider's document class.
func (p *SnapshotProvider) Category() Category {
	return p.category
}

// GetMetadata downloads the category's document and returns it as JSON.
// For categories embedding a storage location, the location is replaced
// with a time-limited pre-signed URL, exactly once, leaving every other
// field untouched. All failures surface as ErrMetadataUnavailable.
func (p *SnapshotProvider) GetMetadata(ctx context.Context) (string, error) {
	pathName := p.category.pathName()
	if pathName == "" {
		return "", fmt.Errorf("%w: unknown category %q", ErrMetadataUnavailable, p.category)
	}

	objectPath, err := p.secrets.Get(pathName)
	if err != nil {
		p.log.Error("Metadata path not configured",
			slog.String("category", string(p.category)),
			slog.String("pathName", pathName), "err", err)
		return "", fmt.Errorf("%w: path lookup failed", ErrMetadataUnavailable)
	}

	document, err := p.storage.Download(ctx, objectPath)
	if err != nil {
		p.log.Error("Metadata download failed",
			slog.String("category", string(p.category)),
			slog.String("path", objectPath), "err", err)
		return "", fmt.Errorf("%w: download failed", ErrMetadataUnavailable)
	}

	parent := p.category.locationParent()
	if parent == "" {
		// Served verbatim; the HTTP layer never exposes raw object
		// content for these categories.
		return string(document), nil
	}

	rewritten, err := p.rewriteLocation(document, parent)
	if err != nil {
		p.log.Error("Metadata location rewrite failed",
			slog.String("category", string(p.category)), "err", err)
		return "", fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}

	return rewritten, nil
}

// rewriteLocation replaces document.<parent>.location with a pre-signed
// URL generated against the original location string.
func (p *SnapshotProvider) rewriteLocation(document []byte, parent string) (string, error) {
	var main map[string]json.RawMessage
	if err := json.Unmarshal(document, &main); err != nil {
		return "", fmt.Errorf("document is not a JSON object: %v", err)
	}

	nestedRaw, ok := main[parent]
	if !ok {
		return "", fmt.Errorf("document has no %q object", parent)
	}

	var nested map[string]interface{}
	if err := json.Unmarshal(nestedRaw, &nested); err != nil {
		return "", fmt.Errorf("%q is not a JSON object: %v", parent, err)
	}

	location, ok := nested["location"].(string)
	if !ok {
		return "", fmt.Errorf("%q has no location field", parent)
	}

	signedURL, err := p.storage.PreSignURL(location)
	if err != nil {
		return "", fmt.Errorf("pre-sign failed: %v", err)
	}
	nested["location"] = signedURL

	rewrittenNested, err := json.Marshal(nested)
	if err != nil {
		return "", err
	}
	main[parent] = rewrittenNested

	encoded, err := json.Marshal(main)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}
