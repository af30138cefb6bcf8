package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

type failingStore struct {
	session.Store
	saveErr error
}

func (f failingStore) Save(context.Context, *session.Document) error { return f.saveErr }

func newTestMirror(t *testing.T) (*Mirror, *JSONStore, *BoltStore) {
	t.Helper()
	dir := t.TempDir()
	primary := NewJSONStore(filepath.Join(dir, "conversations.json"))
	backup, err := NewBoltStore(filepath.Join(dir, "conversations.bolt"))
	require.NoError(t, err)
	m := NewMirror(primary, backup, nil)
	t.Cleanup(func() { m.Close() })
	return m, primary, backup
}

func TestMirrorWritesBoth(t *testing.T) {
	ctx := context.Background()
	m, primary, backup := newTestMirror(t)

	require.NoError(t, m.Save(ctx, sampleDocument()))

	for _, st := range []session.Store{primary, backup} {
		doc, err := st.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, doc.Sessions, 2)
	}
}

func TestMirrorFallsBackOnCorruptPrimary(t *testing.T) {
	ctx := context.Background()
	m, primary, _ := newTestMirror(t)
	require.NoError(t, m.Save(ctx, sampleDocument()))

	require.NoError(t, os.WriteFile(primary.Path(), []byte("garbage"), 0o600))

	doc, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Sessions, 2)
	require.NotNil(t, doc.Current)
	assert.Equal(t, int64(2), doc.Current.ID)
}

func TestMirrorRestoresWhenPrimaryMissing(t *testing.T) {
	ctx := context.Background()
	m, primary, _ := newTestMirror(t)
	require.NoError(t, m.Save(ctx, sampleDocument()))
	require.NoError(t, os.Remove(primary.Path()))

	doc, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Sessions, 2)
}

func TestMirrorCorruptBothReportsPrimary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	primary := NewJSONStore(filepath.Join(dir, "a.json"))
	backup := NewJSONStore(filepath.Join(dir, "b.json"))
	require.NoError(t, os.WriteFile(primary.Path(), []byte("["), 0o600))
	require.NoError(t, os.WriteFile(backup.Path(), []byte("["), 0o600))

	_, err := NewMirror(primary, backup, nil).Load(ctx)
	assert.ErrorIs(t, err, session.ErrCorruptStore)
	assert.Contains(t, err.Error(), "a.json")
}

func TestMirrorBackupFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	primary := NewJSONStore(filepath.Join(dir, "a.json"))
	backup := failingStore{Store: NewJSONStore(filepath.Join(dir, "b.json")), saveErr: assert.AnError}

	m := NewMirror(primary, backup, nil)
	require.NoError(t, m.Save(ctx, sampleDocument()))

	doc, err := primary.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Sessions, 2)
}

func TestMirrorPrimaryFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	primary := failingStore{Store: NewJSONStore(filepath.Join(dir, "a.json")), saveErr: assert.AnError}
	backup := NewJSONStore(filepath.Join(dir, "b.json"))

	err := NewMirror(primary, backup, nil).Save(ctx, sampleDocument())
	assert.ErrorIs(t, err, assert.AnError)

	_, statErr := os.Stat(backup.Path())
	assert.True(t, os.IsNotExist(statErr))
}
