package session

import "context"

// Store abstracts document persistence (JSON file, SQLite, Bolt, etc.).
//
// Load returns an empty document when nothing has been saved yet and an error
// wrapping ErrCorruptStore when the stored data is unreadable. Save replaces
// the stored document atomically and wraps failures in ErrStorageWrite.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}
