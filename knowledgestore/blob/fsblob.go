// Package blob provides a filesystem-backed ports.BlobStore, an
// alternative to the in-memory/postgres adapters for deployments that want
// raw content persisted outside the document store.
package blob

import (
	"context"
	"os"
	"path/filepath"

	"github.com/opsplatform/core/pkg/apierr"
)

// FSStore writes blobs under Root, a local or mounted directory
// configured via the BLOB_BUCKET env var.
type FSStore struct {
	Root string
}

func New(root string) *FSStore {
	return &FSStore{Root: root}
}

func (s *FSStore) Put(_ context.Context, key string, content []byte) (string, error) {
	dest := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apierr.Externalf(err, "creating blob directory for %s", key)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", apierr.Externalf(err, "writing blob %s", key)
	}
	return "file://" + dest, nil
}
