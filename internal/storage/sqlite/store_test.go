package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Put("savedGoals", []byte(`[1]`)))
	require.NoError(t, store.Put("savedGoals", []byte(`[2]`)))

	got, err := store.Get("savedGoals")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))

	prev, err := store.Previous("savedGoals")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(prev))
}

func TestKeys(t *testing.T) {
	store := setupTestStore(t)

	for _, k := range []string{"savedGoals", "savedFolders"} {
		require.NoError(t, store.Put(k, []byte(`[]`)))
	}

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"savedFolders", "savedGoals"}, keys)
}

func TestLoadUninitialized(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.db"))
	assert.ErrorIs(t, store.Load(), storage.ErrNotInitialized)
}

func TestReopenKeepsSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nova.db")

	first := NewStore(path)
	require.NoError(t, first.Init())
	goals := []models.Goal{{ID: "g1", Wish: "Run a marathon", Version: 1}}
	require.NoError(t, storage.Save(first, "savedGoals", goals))
	first.Close()

	second := NewStore(path)
	require.NoError(t, second.Load())
	defer second.Close()

	got := storage.Load[models.Goal](second, "savedGoals")
	require.Len(t, got, 1)
	assert.Equal(t, "Run a marathon", got[0].Wish)
}

func TestSchemaStatus(t *testing.T) {
	store := setupTestStore(t)

	st, err := store.SchemaStatus()
	require.NoError(t, err)
	assert.True(t, st.UpToDate())
	assert.Positive(t, st.Current)
	assert.Empty(t, st.Pending)

	_, err = NewStore(filepath.Join(t.TempDir(), "x.db")).SchemaStatus()
	assert.ErrorIs(t, err, storage.ErrNotLoaded)
}

func TestUseBeforeOpen(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, store.Put("k", nil), storage.ErrNotLoaded)
	_, err := store.Get("k")
	assert.ErrorIs(t, err, storage.ErrNotLoaded)
}
