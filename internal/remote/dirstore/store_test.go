package dirstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/remote"
)

type doc struct {
	ID   string `json:"id"`
	Wish string `json:"wish"`
}

type latest struct {
	mu   sync.Mutex
	docs []json.RawMessage
	n    int
}

func (l *latest) set(docs []json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs = docs
	l.n++
}

func (l *latest) get() ([]json.RawMessage, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.docs, l.n
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	s.debounce = 10 * time.Millisecond
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertWritesOneFilePerDocument(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	path := remote.GoalsPath("u1")

	require.NoError(t, s.Upsert(ctx, path, "g1", doc{ID: "g1", Wish: "run"}))
	require.NoError(t, s.Upsert(ctx, path, "g1", doc{ID: "g1", Wish: "run far"}))

	data, err := os.ReadFile(filepath.Join(s.Root(), "users", "u1", "goals", "g1.json"))
	require.NoError(t, err)

	var got doc
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run far", got.Wish)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "users", "u1", "goals"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Delete(context.Background(), remote.GoalsPath("u1"), "nope"))
}

func TestRejectsUnsafeNames(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	assert.Error(t, s.Upsert(ctx, "users/../etc", "x", doc{}))
	assert.Error(t, s.Upsert(ctx, remote.GoalsPath("u1"), "../x", doc{}))
	assert.Error(t, s.Upsert(ctx, remote.GoalsPath("u1"), ".hidden", doc{}))
	_, err := s.Subscribe(ctx, "goals", func([]json.RawMessage) {}, nil)
	assert.Error(t, err)
}

func TestFetchSkipsMalformedAndForeignFiles(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	path := remote.GoalsPath("u1")

	require.NoError(t, s.Upsert(ctx, path, "b", doc{ID: "b"}))
	require.NoError(t, s.Upsert(ctx, path, "a", doc{ID: "a"}))

	dir := filepath.Join(s.Root(), "users", "u1", "goals")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))

	docs, err := s.fetch(path)
	require.NoError(t, err)
	decoded := remote.DecodeDocs[doc](docs, nil)
	require.Len(t, decoded, 2)
	assert.Equal(t, "a", decoded[0].ID)
	assert.Equal(t, "b", decoded[1].ID)
}

func TestSubscribeDeliversInitialAndLaterSnapshots(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	path := remote.FoldersPath("u1")

	require.NoError(t, s.Upsert(ctx, path, "f1", doc{ID: "f1"}))

	var l latest
	sub, err := s.Subscribe(ctx, path, l.set, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool {
		docs, _ := l.get()
		return len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Upsert(ctx, path, "f2", doc{ID: "f2"}))
	require.Eventually(t, func() bool {
		docs, _ := l.get()
		return len(docs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Delete(ctx, path, "f1"))
	require.Eventually(t, func() bool {
		docs, _ := l.get()
		return len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSecondClientSeesWrites(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	b := New(root)
	a.debounce = 10 * time.Millisecond
	b.debounce = 10 * time.Millisecond
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	path := remote.GoalsPath("shared")

	var l latest
	sub, err := b.Subscribe(ctx, path, l.set, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, a.Upsert(ctx, path, "g1", doc{ID: "g1", Wish: "from a"}))

	require.Eventually(t, func() bool {
		docs, _ := l.get()
		if len(docs) != 1 {
			return false
		}
		got := remote.DecodeDocs[doc](docs, nil)
		return len(got) == 1 && got[0].Wish == "from a"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancelStopsDeliveries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	path := remote.GoalsPath("u1")

	var l latest
	sub, err := s.Subscribe(ctx, path, l.set, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, n := l.get()
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	sub.Cancel()
	require.NoError(t, s.Upsert(ctx, path, "g1", doc{ID: "g1"}))
	time.Sleep(100 * time.Millisecond)

	_, n := l.get()
	assert.Equal(t, 1, n)
}
