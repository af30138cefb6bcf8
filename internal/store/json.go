package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

// JSONStore keeps the whole document in one human-readable JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path. The file and its
// directory are created on first save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load(ctx context.Context) (*session.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path) // #nosec G304 - path comes from configuration
	if os.IsNotExist(err) {
		return session.NewDocument(), nil
	}
	if err != nil {
		return nil, err
	}

	doc := session.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, corrupt("decode %s: %v", s.path, err)
	}
	return finish(doc, s.path)
}

// Save writes the document to a temp file next to the target and renames it
// into place, so a crash never leaves a half-written file behind.
func (s *JSONStore) Save(ctx context.Context, doc *session.Document) error {
	if err := ctx.Err(); err != nil {
		return writeFailed("save %s: %v", s.path, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return writeFailed("encode document: %v", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return writeFailed("create store directory: %v", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return writeFailed("create temp file: %v", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return writeFailed("write %s: %v", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return writeFailed("sync %s: %v", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return writeFailed("close %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return writeFailed("replace %s: %v", s.path, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
