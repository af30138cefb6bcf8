package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Options configure a Registry.
type Options struct {
	// StrictLoad makes Open fail on a corrupt store instead of starting from
	// an empty document.
	StrictLoad bool

	Logger *slog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Registry is the in-memory view of the store document. Every method is safe
// for concurrent use; mutations that change session lifecycle state are written
// through to the Store before returning.
//
// Session pointers handed out by the registry are handles: read and mutate
// them only through registry methods.
type Registry struct {
	mu     sync.Mutex
	store  Store
	doc    *Document
	logger *slog.Logger
	now    func() time.Time
}

// Open loads the document from st and returns a registry over it.
func Open(ctx context.Context, st Store, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC().Round(0) }
	}

	doc, err := st.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCorruptStore) && !opts.StrictLoad:
		logger.Error("conversation store is corrupt, starting with an empty history", "err", err)
		doc = NewDocument()
	default:
		return nil, fmt.Errorf("load conversation store: %w", err)
	}
	if doc == nil {
		doc = NewDocument()
	}
	doc.Recompute()

	return &Registry{
		store:  st,
		doc:    doc,
		logger: logger,
		now:    now,
	}, nil
}

// GetOrCreateActive returns the current session, creating and activating a
// new one when there is none.
func (r *Registry) GetOrCreateActive(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc.Current != nil {
		return r.doc.Current, nil
	}
	s := r.createLocked()
	if err := r.persistLocked(ctx); err != nil {
		r.dropLocked(s)
		r.doc.Current = nil
		return nil, err
	}
	return s, nil
}

// Append records a message in s. The first user message also sets the title.
// Append does not persist; callers commit once the turn is complete.
func (r *Registry) Append(s *Session, role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("append message: invalid role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg := Message{Role: role, Content: content, Timestamp: r.now()}
	if role == RoleUser && s.Title == "" && !s.hasUserMessage() {
		s.Title = DeriveTitle(content)
	}
	s.Messages = append(s.Messages, msg)
	return msg, nil
}

// StartNew closes the current session (if still open) and activates a fresh one.
func (r *Registry) StartNew(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.doc.Current
	closed := false
	if prev != nil && prev.Open() {
		t := r.now()
		prev.EndTime = &t
		closed = true
	}

	s := r.createLocked()
	if err := r.persistLocked(ctx); err != nil {
		r.dropLocked(s)
		r.doc.Current = prev
		if closed {
			prev.EndTime = nil
		}
		return nil, err
	}
	return s, nil
}

// Load makes the session with the given id current. The session keeps its
// end_time; appending to a reopened session is allowed.
func (r *Registry) Load(ctx context.Context, id int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.doc.Find(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if s == r.doc.Current {
		return s, nil
	}

	prev := r.doc.Current
	r.doc.Current = s
	if err := r.persistLocked(ctx); err != nil {
		r.doc.Current = prev
		return nil, err
	}
	return s, nil
}

// CloseCurrent ends the current session and leaves no session active.
func (r *Registry) CloseCurrent(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.doc.Current
	if cur == nil {
		return nil
	}
	closed := false
	if cur.Open() {
		t := r.now()
		cur.EndTime = &t
		closed = true
	}
	r.doc.Current = nil
	if err := r.persistLocked(ctx); err != nil {
		r.doc.Current = cur
		if closed {
			cur.EndTime = nil
		}
		return err
	}
	return nil
}

// Commit writes the whole document to the store.
func (r *Registry) Commit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked(ctx)
}

// Checkpoint marks the current length and title of s so a failed turn can be
// undone with Rollback.
type Checkpoint struct {
	session  *Session
	messages int
	title    string
}

// Checkpoint captures the state of s.
func (r *Registry) Checkpoint(s *Session) Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Checkpoint{session: s, messages: len(s.Messages), title: s.Title}
}

// Rollback drops messages appended to the checkpointed session since cp was
// taken and restores its title.
func (r *Registry) Rollback(cp Checkpoint) {
	if cp.session == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cp.session.Messages) > cp.messages {
		cp.session.Messages = cp.session.Messages[:cp.messages]
	}
	cp.session.Title = cp.title
	r.doc.Recompute()
}

// Window returns the last max messages of s in chronological order.
func (r *Registry) Window(s *Session, max int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return BuildContext(s, max)
}

// List returns summaries of all sessions in id order.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.doc.Sessions))
	for _, s := range r.doc.Sessions {
		sum := s.Summary()
		sum.IsCurrent = s == r.doc.Current
		out = append(out, sum)
	}
	return out
}

// Current returns the summary of the active session.
func (r *Registry) Current() (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc.Current == nil {
		return Summary{}, false
	}
	sum := r.doc.Current.Summary()
	sum.IsCurrent = true
	return sum, true
}

// History returns a copy of the active session's messages (empty, never nil).
func (r *Registry) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc.Current == nil {
		return []Message{}
	}
	return append([]Message{}, r.doc.Current.Messages...)
}

// Export returns a deep copy of the document with fresh statistics.
func (r *Registry) Export() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.doc.Clone()
	doc.Recompute()
	return doc
}

// Stats computes statistics from the current state.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ComputeStatistics(r.doc)
}

func (r *Registry) createLocked() *Session {
	s := &Session{
		ID:        r.doc.NextID(),
		StartTime: r.now(),
		Messages:  []Message{},
	}
	r.doc.Sessions = append(r.doc.Sessions, s)
	r.doc.Current = s
	return s
}

// dropLocked removes a session created by a mutation that failed to persist.
func (r *Registry) dropLocked(s *Session) {
	for i, x := range r.doc.Sessions {
		if x == s {
			r.doc.Sessions = append(r.doc.Sessions[:i], r.doc.Sessions[i+1:]...)
			break
		}
	}
	r.doc.Recompute()
}

func (r *Registry) persistLocked(ctx context.Context) error {
	r.doc.Recompute()
	if err := r.store.Save(ctx, r.doc); err != nil {
		r.logger.Error("persist conversation store", "err", err)
		if !errors.Is(err, ErrStorageWrite) {
			err = fmt.Errorf("%w: %v", ErrStorageWrite, err)
		}
		return err
	}
	return nil
}
