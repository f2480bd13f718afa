package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/novaplanner/nova/internal/backup"
	"github.com/novaplanner/nova/internal/config"
	"github.com/novaplanner/nova/internal/constants"
	nerrors "github.com/novaplanner/nova/internal/errors"
	"github.com/novaplanner/nova/internal/instance"
	"github.com/novaplanner/nova/internal/logger"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/planner"
	"github.com/novaplanner/nova/internal/remote"
	"github.com/novaplanner/nova/internal/remote/dirstore"
	"github.com/novaplanner/nova/internal/remote/postgres"
	"github.com/novaplanner/nova/internal/storage"
	"github.com/novaplanner/nova/internal/storage/jsonfile"
	"github.com/novaplanner/nova/internal/storage/sqlite"
)

// Context is handed to every command's Run method.
type Context struct {
	Config     config.Config
	ConfigPath string
	Local      storage.Provider
	Remote     remote.DocumentStore
	Store      *planner.Store
	Out        io.Writer

	lock *instance.Lock
}

// NewContext builds the local provider for cfg. Nothing is opened yet.
func NewContext(cfg config.Config, configPath string) *Context {
	return &Context{
		Config:     cfg,
		ConfigPath: configPath,
		Local:      NewLocal(cfg.Local),
		Out:        os.Stdout,
	}
}

// NewLocal picks the snapshot cache backend from the path's extension.
func NewLocal(path string) storage.Provider {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return jsonfile.NewStore(path)
	}
	return sqlite.NewStore(path)
}

// NewRemote builds the remote for target: "none", "dir:<path>" or a PostgreSQL
// connection string. A nil store means offline.
func NewRemote(ctx context.Context, target string, fromKeyring bool) (remote.DocumentStore, error) {
	switch {
	case target == "" || target == constants.RemoteNone:
		return nil, nil
	case strings.HasPrefix(target, constants.RemoteDirScheme):
		root := config.ExpandPath(strings.TrimPrefix(target, constants.RemoteDirScheme))
		if root == "" {
			return nil, fmt.Errorf("dir remote needs a path, e.g. dir:~/Sync/nova")
		}
		return dirstore.New(root), nil
	case postgres.IsConnString(target):
		if !fromKeyring {
			if err := postgres.ValidateConnString(target); err != nil {
				return nil, nerrors.WithHint(err, "store credentials with 'nova login --remote' or use .pgpass")
			}
		}
		store := postgres.New(target)
		if err := store.Open(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown remote %q (expected none, dir:<path> or postgres://...)", target)
	}
}

// Open takes the instance lock, loads the cache, connects the remote and loads
// the planner store.
func (c *Context) Open(ctx context.Context) error {
	lock, err := instance.Acquire(c.Config.CacheDir())
	if err != nil {
		return err
	}
	c.lock = lock

	if err := c.Local.Load(); err != nil {
		return err
	}

	rem, err := NewRemote(ctx, c.Config.Remote, c.Config.RemoteFromKeyring)
	if err != nil {
		nerrors.Warnf("remote unavailable, working offline: %v", err)
		rem = nil
	}
	c.Remote = rem

	opts := []planner.Option{planner.WithUserID(c.Config.UserID), planner.WithLogger(logger.With("planner"))}
	if rem != nil {
		opts = append(opts, planner.WithRemote(rem))
	}
	c.Store = planner.New(c.Local, opts...)
	c.Store.Load()
	return nil
}

// Close drains pushes and releases everything Open acquired.
func (c *Context) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Remote != nil {
		if err := c.Remote.Close(); err != nil {
			logger.Warn("Failed to close remote", "error", err)
		}
	}
	if c.Local != nil {
		if err := c.Local.Close(); err != nil {
			logger.Warn("Failed to close cache", "error", err)
		}
	}
	if c.lock != nil {
		if err := c.lock.Release(); err != nil {
			logger.Warn("Failed to release lock", "error", err)
		}
	}
}

// Sync attaches the remote listeners and waits until both the goals and the
// folders collections have been delivered once, a listener fails, or timeout
// passes.
func (c *Context) Sync(ctx context.Context, timeout time.Duration) error {
	if c.Store == nil || !c.Store.Online() {
		return nil
	}

	var (
		mu      sync.Mutex
		seen    = map[string]bool{}
		lastErr error
	)
	changed := make(chan struct{}, 1)
	cancel := c.Store.Subscribe(func(s planner.Snapshot) {
		mu.Lock()
		switch s.Cause {
		case planner.CauseRemote:
			seen[s.Collection] = true
		case planner.CauseRemoteError:
			lastErr = s.Err
		default:
			mu.Unlock()
			return
		}
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	if err := c.Store.Attach(ctx); err != nil {
		return err
	}

	deadline := time.After(timeout)
	for {
		mu.Lock()
		err := lastErr
		done := seen[constants.GoalsCollection] && seen[constants.FoldersCollection]
		mu.Unlock()
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if done {
			return nil
		}

		select {
		case <-changed:
		case <-deadline:
			return fmt.Errorf("sync timed out after %s, showing cached data", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PerformAutomaticBackup backs up the sqlite cache and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Local.(*sqlite.Store); !ok {
		return
	}
	if _, err := backup.NewManager(c.Local.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ResolveGoal finds a goal by id or unique id prefix.
func (c *Context) ResolveGoal(ref string) (models.Goal, error) {
	if g, ok := c.Store.Goal(ref); ok {
		return g, nil
	}
	var match []models.Goal
	for _, g := range c.Store.Goals() {
		if strings.HasPrefix(g.ID, ref) {
			match = append(match, g)
		}
	}
	switch len(match) {
	case 0:
		return models.Goal{}, fmt.Errorf("goal not found: %s", ref)
	case 1:
		return match[0], nil
	default:
		return models.Goal{}, fmt.Errorf("goal id %q is ambiguous (%d matches)", ref, len(match))
	}
}

// ResolveFolder finds a folder by id, unique id prefix, or exact name.
func (c *Context) ResolveFolder(ref string) (models.Folder, error) {
	if f, ok := c.Store.Folder(ref); ok {
		return f, nil
	}
	var match []models.Folder
	for _, f := range c.Store.Folders() {
		if strings.HasPrefix(f.ID, ref) || strings.EqualFold(f.Name, ref) {
			match = append(match, f)
		}
	}
	switch len(match) {
	case 0:
		return models.Folder{}, fmt.Errorf("folder not found: %s", ref)
	case 1:
		return match[0], nil
	default:
		return models.Folder{}, fmt.Errorf("folder %q is ambiguous (%d matches)", ref, len(match))
	}
}

// ParseWeekdays parses a comma-separated list of days into goal day indexes
// (0=Monday..6=Sunday). Numbers are taken as day indexes.
func ParseWeekdays(s string) ([]int, error) {
	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if wd, ok := dayMap[part]; ok {
			days = append(days, models.DayIndex(wd))
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		days = append(days, num)
	}

	if err := models.ValidateRecurringDays(days); err != nil {
		return nil, err
	}
	return days, nil
}

// FormatDays renders day indexes as "Mon,Wed".
func FormatDays(days []int) string {
	if len(days) == 0 {
		return "-"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = models.IndexWeekday(d).String()[:3]
	}
	return strings.Join(names, ",")
}

// ParseDate parses a YYYY-MM-DD deadline in local time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateFormat, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// ShortID trims a UUID for table output.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WriteFile writes data atomically next to path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".nova-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
