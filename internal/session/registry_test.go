package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps the last saved document as JSON, like a real backend would.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	failErr error
	loadErr error
}

func (m *memStore) Load(context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return NewDocument(), nil
	}
	doc := NewDocument()
	if err := json.Unmarshal(m.data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return doc, nil
}

func (m *memStore) Save(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// stepClock returns a clock advancing one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestRegistry(t *testing.T, st *memStore) *Registry {
	t.Helper()
	r, err := Open(context.Background(), st, Options{Now: stepClock()})
	require.NoError(t, err)
	return r
}

func TestOpen_EmptyStore(t *testing.T) {
	r := newTestRegistry(t, &memStore{})

	assert.Empty(t, r.List())
	assert.Equal(t, []Message{}, r.History())
	_, ok := r.Current()
	assert.False(t, ok)
	st := r.Stats()
	assert.Equal(t, 0, st.TotalSessions)
	assert.Equal(t, 0, st.TotalMessages)
}

func TestOpen_CorruptStoreResets(t *testing.T) {
	st := &memStore{data: []byte(`{"sessions": 12}`)}
	r, err := Open(context.Background(), st, Options{})
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestOpen_CorruptStoreStrict(t *testing.T) {
	st := &memStore{data: []byte(`not json`)}
	_, err := Open(context.Background(), st, Options{StrictLoad: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestOpen_OtherLoadErrorFails(t *testing.T) {
	st := &memStore{loadErr: errors.New("permission denied")}
	_, err := Open(context.Background(), st, Options{})
	require.Error(t, err)
}

func TestGetOrCreateActive(t *testing.T) {
	st := &memStore{}
	r := newTestRegistry(t, st)
	ctx := context.Background()

	s1, err := r.GetOrCreateActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s1.ID)
	assert.Nil(t, s1.EndTime)
	assert.Equal(t, "", s1.Title)
	assert.Equal(t, 1, st.saves, "new session should be written through")

	s2, err := r.GetOrCreateActive(ctx)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, st.saves)
}

func TestAppend_TitleFromFirstUserMessage(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	s, err := r.GetOrCreateActive(context.Background())
	require.NoError(t, err)

	_, err = r.Append(s, RoleAssistant, "welcome back")
	require.NoError(t, err)
	assert.Equal(t, "", s.Title, "assistant messages never set the title")

	_, err = r.Append(s, RoleUser, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", s.Title)

	_, err = r.Append(s, RoleUser, "Something else entirely")
	require.NoError(t, err)
	assert.Equal(t, "Hello", s.Title)
}

func TestAppend_RejectsEmptyContent(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	s, err := r.GetOrCreateActive(context.Background())
	require.NoError(t, err)

	_, err = r.Append(s, RoleUser, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
	_, err = r.Append(s, Role("system"), "hi")
	assert.Error(t, err)
	assert.Empty(t, s.Messages)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "Hello"},
		{strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{strings.Repeat("b", 51), strings.Repeat("b", 47) + "..."},
		{strings.Repeat("é", 60), strings.Repeat("é", 47) + "..."},
	}
	for _, tt := range tests {
		if got := DeriveTitle(tt.in); got != tt.want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStartNew_ClosesCurrent(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	s1, err := r.GetOrCreateActive(ctx)
	require.NoError(t, err)
	_, err = r.Append(s1, RoleUser, "first")
	require.NoError(t, err)

	s2, err := r.StartNew(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s2.ID)
	require.NotNil(t, s1.EndTime)
	assert.Len(t, s1.Messages, 1, "prior messages are untouched")

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, int64(2), cur.ID)
}

func TestStartNew_DoesNotReCloseClosedSession(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	s1, _ := r.StartNew(ctx)
	_, _ = r.StartNew(ctx)
	firstEnd := *s1.EndTime

	_, err := r.Load(ctx, s1.ID)
	require.NoError(t, err)
	_, err = r.StartNew(ctx)
	require.NoError(t, err)
	assert.True(t, s1.EndTime.Equal(firstEnd), "end_time is set exactly once")
}

func TestLoad_UnknownID(t *testing.T) {
	st := &memStore{}
	r := newTestRegistry(t, st)
	ctx := context.Background()

	s1, err := r.GetOrCreateActive(ctx)
	require.NoError(t, err)
	saves := st.saves

	_, err = r.Load(ctx, 999)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, s1.ID, cur.ID)
	assert.Equal(t, saves, st.saves)
}

func TestLoad_SwitchKeepsEndTimeAndAllowsAppend(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	s1, _ := r.GetOrCreateActive(ctx)
	_, _ = r.Append(s1, RoleUser, "old topic")
	_, _ = r.StartNew(ctx)
	end := *s1.EndTime

	loaded, err := r.Load(ctx, s1.ID)
	require.NoError(t, err)
	assert.Same(t, s1, loaded)
	require.NotNil(t, loaded.EndTime)
	assert.True(t, loaded.EndTime.Equal(end))

	_, err = r.Append(loaded, RoleUser, "back again")
	require.NoError(t, err)
	assert.Len(t, r.History(), 2)
	assert.Equal(t, "old topic", loaded.Title)
}

func TestIDsStrictlyIncreasing(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		s, err := r.StartNew(ctx)
		require.NoError(t, err)
		assert.Greater(t, s.ID, last)
		last = s.ID
		if i == 2 {
			_, err := r.Load(ctx, 1)
			require.NoError(t, err)
		}
	}

	seen := map[int64]bool{}
	for _, sum := range r.List() {
		assert.False(t, seen[sum.ID], "id %d reused", sum.ID)
		seen[sum.ID] = true
	}
}

func TestCloseCurrent(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	s1, _ := r.GetOrCreateActive(ctx)
	require.NoError(t, r.CloseCurrent(ctx))
	assert.NotNil(t, s1.EndTime)
	_, ok := r.Current()
	assert.False(t, ok)

	s2, err := r.GetOrCreateActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s2.ID)

	require.NoError(t, r.CloseCurrent(ctx))
	require.NoError(t, r.CloseCurrent(ctx), "closing with no active session is a no-op")
}

func TestList_ReadOnlyProjection(t *testing.T) {
	st := &memStore{}
	r := newTestRegistry(t, st)
	ctx := context.Background()

	s1, _ := r.GetOrCreateActive(ctx)
	_, _ = r.Append(s1, RoleUser, "hi")
	_, _ = r.StartNew(ctx)
	saves := st.saves

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.False(t, list[0].IsCurrent)
	assert.True(t, list[1].IsCurrent)

	list[0].Title = "mutated"
	assert.Equal(t, "hi", r.List()[0].Title)
	assert.Equal(t, saves, st.saves)
}

func TestStatisticsNeverDrift(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s, err := r.StartNew(ctx)
		require.NoError(t, err)
		for j := 0; j <= i; j++ {
			_, _ = r.Append(s, RoleUser, fmt.Sprintf("q%d", j))
			_, _ = r.Append(s, RoleAssistant, fmt.Sprintf("a%d", j))
		}
		require.NoError(t, r.Commit(ctx))

		doc := r.Export()
		sum := 0
		for _, s := range doc.Sessions {
			sum += len(s.Messages)
		}
		assert.Equal(t, sum, doc.Statistics.TotalMessages)
		assert.Equal(t, len(doc.Sessions), doc.Statistics.TotalSessions)
		assert.Equal(t, sum, r.Stats().TotalMessages)
	}
}

func TestFailedPersistRollsBack(t *testing.T) {
	st := &memStore{}
	r := newTestRegistry(t, st)
	ctx := context.Background()

	s1, _ := r.GetOrCreateActive(ctx)
	st.setFail(errors.New("disk full"))

	_, err := r.StartNew(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.Nil(t, s1.EndTime)
	assert.Len(t, r.List(), 1)
	cur, _ := r.Current()
	assert.Equal(t, s1.ID, cur.ID)

	err = r.CloseCurrent(ctx)
	assert.ErrorIs(t, err, ErrStorageWrite)
	_, ok := r.Current()
	assert.True(t, ok)
}

func TestCheckpointRollback(t *testing.T) {
	r := newTestRegistry(t, &memStore{})
	ctx := context.Background()

	s, _ := r.GetOrCreateActive(ctx)
	cp := r.Checkpoint(s)
	_, _ = r.Append(s, RoleUser, "will be undone")
	_, _ = r.Append(s, RoleAssistant, "also undone")
	r.Rollback(cp)

	assert.Empty(t, s.Messages)
	assert.Equal(t, "", s.Title)
	assert.Equal(t, 0, r.Stats().TotalMessages)
}

func TestReopenFromStore(t *testing.T) {
	st := &memStore{}
	r := newTestRegistry(t, st)
	ctx := context.Background()

	s1, _ := r.GetOrCreateActive(ctx)
	_, _ = r.Append(s1, RoleUser, "persist me")
	require.NoError(t, r.Commit(ctx))
	_, _ = r.StartNew(ctx)
	_, err := r.Load(ctx, 1)
	require.NoError(t, err)

	r2 := newTestRegistry(t, st)
	cur, ok := r2.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), cur.ID)
	assert.Equal(t, "persist me", cur.Title)
	assert.Len(t, r2.List(), 2)

	s3, err := r2.StartNew(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s3.ID)
}
