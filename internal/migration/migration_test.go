package migration

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/novaplanner/nova/migrations"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func files(m map[string]string) fstest.MapFS {
	out := fstest.MapFS{}
	for name, body := range m {
		out[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return out
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n))
	return n == 1
}

func TestParse(t *testing.T) {
	got, err := Parse(files(map[string]string{
		"001_init.sql":    "CREATE TABLE a (id INTEGER);",
		"003_another.sql": "CREATE TABLE b (id INTEGER);",
		"002_update.sql":  "ALTER TABLE a ADD COLUMN name TEXT;",
		"README.md":       "not a migration",
	}))
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i, want := range []struct {
		version int
		name    string
	}{{1, "init"}, {2, "update"}, {3, "another"}} {
		assert.Equal(t, want.version, got[i].Version)
		assert.Equal(t, want.name, got[i].Name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"missing underscore", map[string]string{"001init.sql": "SELECT 1;"}, "bad migration file name"},
		{"zero version", map[string]string{"000_init.sql": "SELECT 1;"}, "versions start at 1"},
		{"duplicate version", map[string]string{"001_a.sql": "SELECT 1;", "001_b.sql": "SELECT 1;"}, "share version 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(files(tt.files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = New(openDB(t), files(tt.files), SQLite, nil)
			assert.Error(t, err)
		})
	}
}

func TestUpAppliesPendingOnly(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	fsys := files(map[string]string{
		"001_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
	})

	r, err := New(db, fsys, SQLite, nil)
	require.NoError(t, err)
	n, err := r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	fsys["002_posts.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE posts (id INTEGER PRIMARY KEY);")}
	r, err = New(db, fsys, SQLite, nil)
	require.NoError(t, err)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 2, st.Latest)
	require.Len(t, st.Pending, 1)
	assert.Equal(t, "posts", st.Pending[0].Name)
	assert.False(t, st.UpToDate())

	n, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.UpToDate())
	assert.True(t, tableExists(t, db, "users"))
	assert.True(t, tableExists(t, db, "posts"))

	var recorded int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&recorded))
	assert.Equal(t, 2, recorded)
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	r, err := New(db, files(map[string]string{
		"001_broken.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);\nTHIS IS NOT SQL;",
	}), SQLite, nil)
	require.NoError(t, err)

	n, err := r.Up(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.False(t, tableExists(t, db, "users"))
}

func TestCheckRejectsNewerDatabase(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	r, err := New(db, files(map[string]string{
		"001_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	}), SQLite, nil)
	require.NoError(t, err)
	_, err = r.Up(ctx)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO schema_migrations (version, name, applied_at) VALUES (10, 'future', '2030-01-01T00:00:00Z')")
	require.NoError(t, err)

	assert.ErrorIs(t, r.Check(ctx), ErrSchemaTooNew)
	_, err = r.Up(ctx)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestEmbeddedSQLiteMigrations(t *testing.T) {
	db := openDB(t)
	sub, err := fs.Sub(migrations.FS, "sqlite")
	require.NoError(t, err)

	r, err := New(db, sub, SQLite, nil)
	require.NoError(t, err)
	_, err = r.Up(context.Background())
	require.NoError(t, err)
	assert.True(t, tableExists(t, db, "snapshots"))
}

func TestEmbeddedPostgresMigrationsParse(t *testing.T) {
	sub, err := fs.Sub(migrations.FS, "postgres")
	require.NoError(t, err)
	ms, err := Parse(sub)
	require.NoError(t, err)
	assert.NotEmpty(t, ms)
}

func TestBind(t *testing.T) {
	assert.Equal(t, "?", SQLite.bind(3))
	assert.Equal(t, "$3", Postgres.bind(3))
	assert.Equal(t, "postgres", Postgres.String())
}
