package backups

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/config"
	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/storage"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Local = filepath.Join(dir, "nova.db")
	ctx := cli.NewContext(cfg, filepath.Join(dir, "config.yaml"))
	out := &bytes.Buffer{}
	ctx.Out = out

	require.NoError(t, ctx.Local.Init())
	t.Cleanup(func() { ctx.Local.Close() })
	return ctx, out
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No backups found.")

	out.Reset()
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Backup created: "+constants.BackupFilePrefix)

	out.Reset()
	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "1 total")
}

func TestBackupRequiresSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Local = filepath.Join(dir, "cache.json")
	ctx := cli.NewContext(cfg, filepath.Join(dir, "config.yaml"))

	assert.ErrorIs(t, (&BackupCreateCmd{}).Run(ctx), errNotSQLite)
}

func TestBackupRestore(t *testing.T) {
	ctx, out := setupTestContext(t)

	require.NoError(t, storage.Save(ctx.Local, constants.GoalsKey, []models.Goal{{ID: "g1", Wish: "Before"}}))
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created: "))

	require.NoError(t, storage.Save(ctx.Local, constants.GoalsKey, []models.Goal{{ID: "g2", Wish: "After"}}))

	out.Reset()
	old := stdin
	stdin = strings.NewReader("n\n")
	t.Cleanup(func() { stdin = old })
	require.NoError(t, (&BackupRestoreCmd{BackupFile: name}).Run(ctx))
	require.Contains(t, out.String(), "Restore cancelled.")

	out.Reset()
	require.NoError(t, (&BackupRestoreCmd{BackupFile: name, Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), "Previous cache saved as")

	require.NoError(t, ctx.Local.Load())
	goals := storage.Load[models.Goal](ctx.Local, constants.GoalsKey)
	require.Len(t, goals, 1)
	assert.Equal(t, "g1", goals[0].ID)
}

func TestBackupRestoreUnknownFile(t *testing.T) {
	ctx, _ := setupTestContext(t)
	assert.Error(t, (&BackupRestoreCmd{BackupFile: "nova-20990101-000000.db", Yes: true}).Run(ctx))
}
