package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	snapshots [][]json.RawMessage
	errs      []error
}

func (r *recorder) onSnapshot(docs []json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, docs)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) last() []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type doc struct {
	ID   string `json:"id"`
	Wish string `json:"wish"`
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "users/u1/goals", GoalsPath("u1"))
	assert.Equal(t, "users/u1/folders", FoldersPath("u1"))
	assert.True(t, ValidPath(GoalsPath("u1")))
	assert.False(t, ValidPath("users/../goals"))
	assert.False(t, ValidPath("users/u1"))
	assert.False(t, ValidPath("teams/u1/goals"))
}

func TestMemorySubscribeDeliversInitialSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	path := GoalsPath("u1")

	require.NoError(t, m.Upsert(ctx, path, "a", doc{ID: "a", Wish: "first"}))

	var rec recorder
	sub, err := m.Subscribe(ctx, path, rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool { return len(rec.last()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestFeedWaitsForKick(t *testing.T) {
	var rec recorder
	feed := NewFeed(context.Background(), GoalsPath("u1"), func(context.Context) ([]json.RawMessage, error) {
		return []json.RawMessage{json.RawMessage(`{"id":"a"}`)}, nil
	}, rec.onSnapshot, rec.onError)
	defer feed.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	feed.Kick()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryRegistersFeedBeforeFirstDelivery(t *testing.T) {
	m := NewMemory()
	registered := make(chan int, 1)

	sub, err := m.Subscribe(context.Background(), GoalsPath("u1"), func([]json.RawMessage) {
		m.mu.Lock()
		n := len(m.feeds)
		m.mu.Unlock()
		select {
		case registered <- n:
		default:
		}
	}, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case n := <-registered:
		assert.Equal(t, 1, n, "feed must receive change signals from its first snapshot on")
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}
}

func TestMemoryDeliversFullCollectionOnChange(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	path := GoalsPath("u1")

	var rec recorder
	sub, err := m.Subscribe(ctx, path, rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, m.Upsert(ctx, path, "b", doc{ID: "b", Wish: "two"}))
	require.NoError(t, m.Upsert(ctx, path, "a", doc{ID: "a", Wish: "one"}))
	require.NoError(t, m.Upsert(ctx, path, "a", doc{ID: "a", Wish: "one, edited"}))

	require.Eventually(t, func() bool {
		docs := DecodeDocs[doc](rec.last(), nil)
		return len(docs) == 2 && docs[0].Wish == "one, edited"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Delete(ctx, path, "b"))
	require.Eventually(t, func() bool { return len(rec.last()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryIgnoresOtherPaths(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var rec recorder
	sub, err := m.Subscribe(ctx, GoalsPath("u1"), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Upsert(ctx, GoalsPath("u2"), "x", doc{ID: "x"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Empty(t, rec.last())
}

func TestMemoryCancelStopsDelivery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	path := GoalsPath("u1")

	var rec recorder
	sub, err := m.Subscribe(ctx, path, rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	sub.Cancel()
	sub.Cancel() // idempotent

	require.NoError(t, m.Upsert(ctx, path, "a", doc{ID: "a"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestMemoryContextCancelStopsDelivery(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	path := GoalsPath("u1")

	var rec recorder
	sub, err := m.Subscribe(ctx, path, rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-sub.(*Feed).Done()

	require.NoError(t, m.Upsert(context.Background(), path, "a", doc{ID: "a"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestMemoryListenerErrorsReachSubscriber(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var rec recorder
	sub, err := m.Subscribe(ctx, FoldersPath("u1"), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	m.FailListeners(errors.New("permission denied"))
	require.Eventually(t, func() bool { return rec.errCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryFailWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("unavailable")

	m.FailWrites(boom)
	assert.ErrorIs(t, m.Upsert(ctx, GoalsPath("u1"), "a", doc{ID: "a"}), boom)
	assert.ErrorIs(t, m.Delete(ctx, GoalsPath("u1"), "a"), boom)

	m.FailWrites(nil)
	require.NoError(t, m.Upsert(ctx, GoalsPath("u1"), "a", doc{ID: "a"}))
	writes, deletions := m.Stats()
	assert.Equal(t, 1, writes)
	assert.Equal(t, 0, deletions)
}

func TestSubscribeRejectsBadPath(t *testing.T) {
	_, err := NewMemory().Subscribe(context.Background(), "../etc", func([]json.RawMessage) {}, nil)
	assert.Error(t, err)
}

func TestDecodeDocsSkipsBadDocuments(t *testing.T) {
	docs := []json.RawMessage{
		json.RawMessage(`{"id":"a","wish":"ok"}`),
		json.RawMessage(`{"id":`),
		json.RawMessage(`{"id":"c","wish":"also ok"}`),
	}
	got := DecodeDocs[doc](docs, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[1].ID)
}
