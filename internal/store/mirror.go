package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

// Mirror pairs a primary store with a backup of the same interface.
// Saves go to the primary first; a failed backup write is logged, not returned.
// Loads fall back to the backup when the primary is corrupt, or when the
// primary is empty while the backup still holds sessions.
type Mirror struct {
	primary session.Store
	backup  session.Store
	logger  *slog.Logger
}

// NewMirror returns a Mirror over primary and backup.
func NewMirror(primary, backup session.Store, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{primary: primary, backup: backup, logger: logger}
}

func (m *Mirror) Load(ctx context.Context) (*session.Document, error) {
	doc, err := m.primary.Load(ctx)
	switch {
	case err == nil && len(doc.Sessions) > 0:
		return doc, nil
	case err == nil:
		bdoc, berr := m.backup.Load(ctx)
		if berr == nil && len(bdoc.Sessions) > 0 {
			m.logger.Warn("primary conversation store is empty, restored from backup",
				"sessions", len(bdoc.Sessions))
			return bdoc, nil
		}
		return doc, nil
	case errors.Is(err, session.ErrCorruptStore):
		bdoc, berr := m.backup.Load(ctx)
		if berr != nil {
			m.logger.Error("backup conversation store unusable", "err", berr)
			return nil, err
		}
		m.logger.Warn("primary conversation store is corrupt, loaded backup", "err", err)
		return bdoc, nil
	default:
		return nil, err
	}
}

func (m *Mirror) Save(ctx context.Context, doc *session.Document) error {
	if err := m.primary.Save(ctx, doc); err != nil {
		return err
	}
	if err := m.backup.Save(ctx, doc); err != nil {
		m.logger.Warn("backup conversation store write failed", "err", err)
	}
	return nil
}

func (m *Mirror) Close() error {
	perr := m.primary.Close()
	berr := m.backup.Close()
	if perr != nil {
		return perr
	}
	return berr
}
