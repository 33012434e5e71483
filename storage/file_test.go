package storage

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackendDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partners"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partners", "metadata.json"), []byte(`{"a":1}`), 0644))

	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	data, err := backend.Download(context.Background(), "partners/metadata.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestFileBackendDownloadMissing(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = backend.Download(context.Background(), "missing.json")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestFileBackendRejectsTraversal(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = backend.Download(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestFileBackendPreSignURL(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	signed, err := backend.PreSignURL("partners/list.json")
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.NotEmpty(t, u.Query().Get("expires"))
	assert.NotEmpty(t, u.Query().Get("signature"))
	assert.True(t, strings.Contains(signed, "partners/list.json"))
}

func TestFactoryCreatesFileBackend(t *testing.T) {
	factory := NewFactory(testLogger())

	backend, err := factory.BackendFor("file://" + t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)
}

func TestFactoryCreatesS3Backend(t *testing.T) {
	factory := NewFactory(testLogger())

	backend, err := factory.BackendFor("s3://metadata-bucket/snapshots?region=eu-west-1")
	require.NoError(t, err)
	assert.IsType(t, &S3Backend{}, backend)
}

func TestFactoryRejectsUnknownScheme(t *testing.T) {
	factory := NewFactory(testLogger())

	_, err := factory.BackendFor("ftp://nope")
	assert.Error(t, err)
}
