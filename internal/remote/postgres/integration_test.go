package postgres

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/remote"
)

// Set NOVA_TEST_POSTGRES to run, e.g.
// NOVA_TEST_POSTGRES="postgres://nova@localhost:5432/nova_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("NOVA_TEST_POSTGRES")
	if connStr == "" {
		t.Skip("NOVA_TEST_POSTGRES not set, skipping PostgreSQL integration test")
	}

	ctx := context.Background()
	store := New(connStr)
	require.NoError(t, store.Open(ctx))
	defer store.Close()

	path := remote.GoalsPath("it-" + uuid.NewString())

	var mu sync.Mutex
	var last []json.RawMessage
	deliveries := 0
	sub, err := store.Subscribe(ctx, path, func(docs []json.RawMessage) {
		mu.Lock()
		defer mu.Unlock()
		last = docs
		deliveries++
	}, func(err error) {
		t.Logf("listener error: %v", err)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries > 0 && len(last) == 0
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, store.Upsert(ctx, path, "a", map[string]any{"id": "a", "wish": "run"}))
	require.NoError(t, store.Upsert(ctx, path, "b", map[string]any{"id": "b", "wish": "read"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 2
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, store.Delete(ctx, path, "a"))
	require.NoError(t, store.Delete(ctx, path, "b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 0
	}, 5*time.Second, 20*time.Millisecond)
}
