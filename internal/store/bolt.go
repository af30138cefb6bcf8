package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

var (
	boltBucket      = []byte("conversations")
	boltDocumentKey = []byte("document")
)

// BoltStore keeps the canonical JSON document under a single key in a BoltDB
// file. Bolt update transactions give the atomic replace.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the Bolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(ctx context.Context) (*session.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := session.NewDocument()
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		v := b.Get(boltDocumentKey)
		if v == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(v, doc); err != nil {
			return corrupt("decode bolt document: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return session.NewDocument(), nil
	}
	return finish(doc, "bolt store")
}

func (s *BoltStore) Save(ctx context.Context, doc *session.Document) error {
	if err := ctx.Err(); err != nil {
		return writeFailed("save bolt document: %v", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return writeFailed("encode document: %v", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.Put(boltDocumentKey, data)
	})
	if err != nil {
		return writeFailed("save bolt document: %v", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
