// Package store implements session.Store backends: a JSON document file
// (default), SQLite, BoltDB, and a primary/backup mirror of any two of them.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string

	// Backup, when set, is written after every successful save to the primary
	// and read when the primary is corrupt or empty.
	Backup *Options

	Logger *slog.Logger
}

// DefaultPath returns the default file for a backend
// (~/.local/share/hasi/conversations.<ext>).
func DefaultPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	switch backend {
	case BackendSQLite:
		ext = "db"
	case BackendBolt:
		ext = "bolt"
	}
	return filepath.Join(home, ".local", "share", "hasi", "conversations."+ext), nil
}

// Open builds the store described by opts.
func Open(opts Options) (session.Store, error) {
	primary, err := openBackend(opts)
	if err != nil {
		return nil, err
	}
	if opts.Backup == nil {
		return primary, nil
	}

	b := *opts.Backup
	if b.Logger == nil {
		b.Logger = opts.Logger
	}
	backup, err := openBackend(b)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("open backup store: %w", err)
	}
	return NewMirror(primary, backup, opts.Logger), nil
}

func openBackend(opts Options) (session.Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendJSON
	}
	path := opts.Path
	if path == "" {
		p, err := DefaultPath(backend)
		if err != nil {
			return nil, fmt.Errorf("default store path: %w", err)
		}
		path = p
	}

	switch backend {
	case BackendJSON:
		return NewJSONStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want json, sqlite or bolt)", backend)
	}
}

func corrupt(format string, args ...any) error {
	return errors.WithMessagef(session.ErrCorruptStore, format, args...)
}

func writeFailed(format string, args ...any) error {
	return errors.WithMessagef(session.ErrStorageWrite, format, args...)
}

// finish validates a freshly decoded document and refreshes its statistics.
func finish(doc *session.Document, source string) (*session.Document, error) {
	if doc.Sessions == nil {
		doc.Sessions = []*session.Session{}
	}
	if err := doc.Validate(); err != nil {
		return nil, corrupt("%s: %v", source, err)
	}
	doc.Recompute()
	return doc, nil
}
