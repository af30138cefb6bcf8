package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY,
    start_time TEXT NOT NULL,
    end_time   TEXT,
    title      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS messages (
    session_id INTEGER NOT NULL REFERENCES sessions(id),
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    timestamp  TEXT NOT NULL,
    PRIMARY KEY (session_id, seq)
);
CREATE TABLE IF NOT EXISTS store_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const metaCurrentSession = "current_session"

// SQLiteStore implements session.Store backed by a SQLite database. Each save
// replaces the stored snapshot inside a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps the snapshot transaction and readers serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*session.Document, error) {
	doc := session.NewDocument()
	byID := make(map[int64]*session.Session)

	rows, err := s.db.QueryContext(ctx, `SELECT id, start_time, end_time, title FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for rows.Next() {
		var (
			sess      session.Session
			startTime string
			endTime   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &startTime, &endTime, &sess.Title); err != nil {
			rows.Close()
			return nil, corrupt("scan session: %v", err)
		}
		if sess.StartTime, err = time.Parse(time.RFC3339Nano, startTime); err != nil {
			rows.Close()
			return nil, corrupt("session %d start_time: %v", sess.ID, err)
		}
		if endTime.Valid {
			t, err := time.Parse(time.RFC3339Nano, endTime.String)
			if err != nil {
				rows.Close()
				return nil, corrupt("session %d end_time: %v", sess.ID, err)
			}
			sess.EndTime = &t
		}
		sess.Messages = []session.Message{}
		doc.Sessions = append(doc.Sessions, &sess)
		byID[sess.ID] = &sess
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT session_id, role, content, timestamp FROM messages ORDER BY session_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sessionID int64
			role, ts  string
			msg       session.Message
		)
		if err := rows.Scan(&sessionID, &role, &msg.Content, &ts); err != nil {
			return nil, corrupt("scan message: %v", err)
		}
		sess, ok := byID[sessionID]
		if !ok {
			return nil, corrupt("message references unknown session %d", sessionID)
		}
		msg.Role = session.Role(role)
		if msg.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, corrupt("session %d message timestamp: %v", sessionID, err)
		}
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaCurrentSession).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("load current session: %w", err)
	case current != "":
		id, perr := strconv.ParseInt(current, 10, 64)
		if perr != nil {
			return nil, corrupt("current_session %q: %v", current, perr)
		}
		if doc.Current = byID[id]; doc.Current == nil {
			return nil, corrupt("current_session %d does not exist", id)
		}
	}

	return finish(doc, "sqlite store")
}

func (s *SQLiteStore) Save(ctx context.Context, doc *session.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeFailed("begin transaction: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return writeFailed("clear messages: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return writeFailed("clear sessions: %v", err)
	}

	for _, sess := range doc.Sessions {
		var endTime sql.NullString
		if sess.EndTime != nil {
			endTime = sql.NullString{String: sess.EndTime.Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, start_time, end_time, title) VALUES (?, ?, ?, ?)`,
			sess.ID, sess.StartTime.Format(time.RFC3339Nano), endTime, sess.Title,
		); err != nil {
			return writeFailed("save session %d: %v", sess.ID, err)
		}
		for i, msg := range sess.Messages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO messages (session_id, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
				sess.ID, i, string(msg.Role), msg.Content, msg.Timestamp.Format(time.RFC3339Nano),
			); err != nil {
				return writeFailed("save session %d message %d: %v", sess.ID, i, err)
			}
		}
	}

	current := ""
	if doc.Current != nil {
		current = strconv.FormatInt(doc.Current.ID, 10)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)`,
		metaCurrentSession, current,
	); err != nil {
		return writeFailed("save current session: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return writeFailed("commit: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
