// Package migration applies numbered SQL files to a database and records
// every applied file in a schema_migrations table.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// ErrSchemaTooNew means the database was migrated by a newer build.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports, please upgrade nova")

// 001_snapshots.sql
var filePattern = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_-]+)\.sql$`)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// bind returns the n-th (1-based) bind parameter.
func (d Dialect) bind(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Parse reads every NNN_name.sql file at the root of fsys, ordered by version.
// Files that are not .sql are ignored; badly named .sql files are an error.
func Parse(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < 4 || name[len(name)-4:] != ".sql" {
			continue
		}
		m := filePattern.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("bad migration file name %s (want NNN_name.sql)", name)
		}
		version, _ := strconv.Atoi(m[1])
		if version == 0 {
			return nil, fmt.Errorf("bad migration file name %s: versions start at 1", name)
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		out = append(out, Migration{Version: version, Name: m[2], SQL: string(body)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migrations %s and %s share version %d", out[i-1].Name, out[i].Name, out[i].Version)
		}
	}
	return out, nil
}

// Status describes where a database stands relative to the available files.
type Status struct {
	Current int
	Latest  int
	Pending []Migration
}

func (s Status) UpToDate() bool {
	return s.Current == s.Latest
}

type Runner struct {
	db         *sql.DB
	dialect    Dialect
	migrations []Migration
	log        *log.Logger
	now        func() time.Time
}

// New parses fsys up front so a bad file set fails before the database is touched.
func New(db *sql.DB, fsys fs.FS, dialect Dialect, l *log.Logger) (*Runner, error) {
	ms, err := Parse(fsys)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = log.Default()
	}
	return &Runner{db: db, dialect: dialect, migrations: ms, log: l, now: time.Now}, nil
}

func (r *Runner) latest() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) current(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (r *Runner) Status(ctx context.Context) (Status, error) {
	cur, err := r.current(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Current: cur, Latest: r.latest()}
	for _, m := range r.migrations {
		if m.Version > cur {
			st.Pending = append(st.Pending, m)
		}
	}
	return st, nil
}

// Check fails with ErrSchemaTooNew when the database is ahead of the files.
func (r *Runner) Check(ctx context.Context) error {
	st, err := r.Status(ctx)
	if err != nil {
		return err
	}
	return st.check()
}

func (s Status) check() error {
	if s.Current > s.Latest {
		return fmt.Errorf("%w (database at %d, nova knows %d)", ErrSchemaTooNew, s.Current, s.Latest)
	}
	return nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many were applied.
func (r *Runner) Up(ctx context.Context) (int, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return 0, err
	}
	if err := st.check(); err != nil {
		return 0, err
	}
	if len(st.Pending) == 0 {
		r.log.Debug("Schema up to date", "dialect", r.dialect, "version", st.Current)
		return 0, nil
	}

	insert := fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)",
		r.dialect.bind(1), r.dialect.bind(2), r.dialect.bind(3))

	for i, m := range st.Pending {
		if err := r.apply(ctx, m, insert); err != nil {
			return i, err
		}
		r.log.Info("Applied migration", "dialect", r.dialect, "version", m.Version, "name", m.Name)
	}
	return len(st.Pending), nil
}

func (r *Runner) apply(ctx context.Context, m Migration, insert string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, insert, m.Version, m.Name, r.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: failed to record: %w", m.Version, err)
	}
	return tx.Commit()
}
