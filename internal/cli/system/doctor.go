package system

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/novaplanner/nova/internal/backup"
	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/keyring"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/storage"
	"github.com/novaplanner/nova/internal/storage/sqlite"
	"github.com/novaplanner/nova/internal/validation"
)

const remoteCheckTimeout = 10 * time.Second

type DoctorCmd struct{}

type check struct {
	name     string
	run      func(ctx *cli.Context) error
	warnOnly bool
	needsDB  bool
}

var doctorChecks = []check{
	{name: "Config file", run: checkConfigFile, warnOnly: true},
	{name: "Cache reachable", run: checkCacheReachable},
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Snapshots readable", run: checkSnapshotsReadable, needsDB: true},
	{name: "Data validation", run: checkDataValidation, needsDB: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	{name: "Signed in", run: checkSignedIn, warnOnly: true},
	{name: "OS keyring", run: checkKeyring, warnOnly: true},
	{name: "Remote reachable", run: checkRemote},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Fprintln(ctx.Out, "Running diagnostics...")
	fmt.Fprintln(ctx.Out)

	hasError := false
	dbReachable := true

	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			fmt.Fprintf(ctx.Out, "⊘ %s: SKIPPED (cache not reachable)\n", c.name)
			continue
		}

		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(ctx.Out, "✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Fprintf(ctx.Out, "⚠ %s: WARNING\n", c.name)
			fmt.Fprintf(ctx.Out, "   %v\n", err)
		default:
			fmt.Fprintf(ctx.Out, "❌ %s: FAIL\n", c.name)
			fmt.Fprintf(ctx.Out, "   Error: %v\n", err)
			hasError = true
			if c.name == "Cache reachable" {
				dbReachable = false
			}
		}
	}

	fmt.Fprintln(ctx.Out)
	if hasError {
		fmt.Fprintln(ctx.Out, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Fprintln(ctx.Out, "All diagnostics passed!")
	return nil
}

func checkConfigFile(ctx *cli.Context) error {
	if _, err := os.Stat(ctx.ConfigPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no config at %s, using defaults (run 'nova init')", ctx.ConfigPath)
		}
		return err
	}
	return nil
}

func checkCacheReachable(ctx *cli.Context) error {
	if err := ctx.Local.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	if store, ok := ctx.Local.(*sqlite.Store); ok {
		db := store.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	store, ok := ctx.Local.(*sqlite.Store)
	if !ok {
		// JSON cache has no schema table
		return nil
	}

	st, err := store.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if !st.UpToDate() {
		return fmt.Errorf("schema version %d, expected %d (%d pending)", st.Current, st.Latest, len(st.Pending))
	}
	return nil
}

func readSnapshot[T any](p storage.Provider, key string) ([]T, error) {
	data, err := p.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items, err := storage.Decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return items, nil
}

func checkSnapshotsReadable(ctx *cli.Context) error {
	if _, err := readSnapshot[models.Goal](ctx.Local, constants.GoalsKey); err != nil {
		return err
	}
	if _, err := readSnapshot[models.Folder](ctx.Local, constants.FoldersKey); err != nil {
		return err
	}
	return nil
}

func checkDataValidation(ctx *cli.Context) error {
	goals, err := readSnapshot[models.Goal](ctx.Local, constants.GoalsKey)
	if err != nil {
		return err
	}
	folders, err := readSnapshot[models.Folder](ctx.Local, constants.FoldersKey)
	if err != nil {
		return err
	}

	result := validation.New().Validate(goals, folders)
	if result.HasConflicts() {
		return fmt.Errorf("%d conflict(s); run 'nova validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Local.(*sqlite.Store); !ok {
		return nil
	}
	mgr := backup.NewManager(ctx.Local.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups in %s (run 'nova backup create')", mgr.Dir())
	}
	return nil
}

func checkSignedIn(ctx *cli.Context) error {
	if ctx.Config.UserID == "" {
		return fmt.Errorf("no user id; changes stay local (run 'nova login --user <id>')")
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return fmt.Errorf("OS keyring is not available; use %s and .pgpass instead", constants.EnvUserID)
	}
	return nil
}

func checkRemote(ctx *cli.Context) error {
	c, cancel := context.WithTimeout(context.Background(), remoteCheckTimeout)
	defer cancel()

	rem, err := cli.NewRemote(c, ctx.Config.Remote, ctx.Config.RemoteFromKeyring)
	if err != nil {
		return err
	}
	if rem == nil {
		return nil
	}
	return rem.Close()
}
