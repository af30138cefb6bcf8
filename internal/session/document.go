package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Statistics are aggregate counters over a document. They are always derived
// from the session list and never trusted when read back from storage.
type Statistics struct {
	TotalSessions int `json:"total_sessions"`
	TotalMessages int `json:"total_messages"`
}

// Document is the persisted aggregate: every session, the current pointer and
// derived statistics. Current always points into Sessions (or is nil).
type Document struct {
	Sessions   []*Session
	Current    *Session
	Statistics Statistics
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Sessions: []*Session{}}
}

// Recompute refreshes Statistics from the session list.
func (d *Document) Recompute() {
	d.Statistics = Statistics{TotalSessions: len(d.Sessions)}
	for _, s := range d.Sessions {
		d.Statistics.TotalMessages += len(s.Messages)
	}
}

// Find returns the session with the given id, or nil.
func (d *Document) Find(id int64) *Session {
	for _, s := range d.Sessions {
		if s != nil && s.ID == id {
			return s
		}
	}
	return nil
}

// NextID returns max(existing ids)+1, or 1 for an empty document.
func (d *Document) NextID() int64 {
	var max int64
	for _, s := range d.Sessions {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

// Clone returns a deep copy. The copy's Current points into its own Sessions.
func (d *Document) Clone() *Document {
	c := &Document{
		Sessions:   make([]*Session, len(d.Sessions)),
		Statistics: d.Statistics,
	}
	for i, s := range d.Sessions {
		c.Sessions[i] = s.clone()
		if s == d.Current {
			c.Current = c.Sessions[i]
		}
	}
	return c
}

// Validate checks the structural invariants a loaded document must satisfy.
func (d *Document) Validate() error {
	seen := make(map[int64]bool, len(d.Sessions))
	for i, s := range d.Sessions {
		if s == nil {
			return fmt.Errorf("session #%d is null", i)
		}
		if s.ID <= 0 {
			return fmt.Errorf("session #%d has invalid id %d", i, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate session id %d", s.ID)
		}
		seen[s.ID] = true
		if s.StartTime.IsZero() {
			return fmt.Errorf("session %d has no start_time", s.ID)
		}
		for j, m := range s.Messages {
			if !m.Role.Valid() {
				return fmt.Errorf("session %d message #%d has invalid role %q", s.ID, j, m.Role)
			}
			if strings.TrimSpace(m.Content) == "" {
				return fmt.Errorf("session %d message #%d has empty content", s.ID, j)
			}
			if m.Timestamp.IsZero() {
				return fmt.Errorf("session %d message #%d has no timestamp", s.ID, j)
			}
		}
	}
	if d.Current != nil && !containsPtr(d.Sessions, d.Current) {
		return errors.New("current session is not part of the session list")
	}
	return nil
}

func containsPtr(list []*Session, s *Session) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// documentJSON is the canonical on-disk shape. current_session stores the id of
// the referenced session so the session itself is never written twice.
type documentJSON struct {
	Sessions       *[]*Session `json:"sessions"`
	CurrentSession *int64      `json:"current_session"`
	Statistics     Statistics  `json:"statistics"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	sessions := d.Sessions
	if sessions == nil {
		sessions = []*Session{}
	}
	out := documentJSON{Sessions: &sessions, Statistics: d.Statistics}
	if d.Current != nil {
		id := d.Current.ID
		out.CurrentSession = &id
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Sessions == nil {
		return errors.New("missing required field \"sessions\"")
	}
	d.Sessions = *in.Sessions
	d.Current = nil
	d.Statistics = in.Statistics
	if in.CurrentSession != nil {
		d.Current = d.Find(*in.CurrentSession)
		if d.Current == nil {
			return fmt.Errorf("current_session %d does not exist", *in.CurrentSession)
		}
	}
	return nil
}
