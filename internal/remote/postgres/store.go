package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	pq "github.com/lib/pq"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/logger"
	"github.com/novaplanner/nova/internal/migration"
	"github.com/novaplanner/nova/internal/remote"
	"github.com/novaplanner/nova/migrations"
)

// Store is a remote.DocumentStore on a PostgreSQL documents table. A trigger
// publishes the collection path on every write and a single pq.Listener fans
// those notifications out to the feeds subscribed to that path.
type Store struct {
	connStr string
	db      *sql.DB
	log     *log.Logger

	mu       sync.Mutex
	listener *pq.Listener
	feeds    map[*remote.Feed]struct{}
	stop     chan struct{}
	stopped  chan struct{}
}

var _ remote.DocumentStore = (*Store)(nil)

func New(connStr string) *Store {
	return &Store{
		connStr: withSearchPath(connStr),
		log:     logger.With("remote/postgres"),
		feeds:   make(map[*remote.Feed]struct{}),
	}
}

// Open connects, creates the schema and applies pending migrations.
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db

	if err := s.runMigrations(ctx); err != nil {
		s.db = nil
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}

	runner, err := migration.New(s.db, subFS, migration.Postgres, s.log)
	if err != nil {
		return err
	}
	_, err = runner.Up(ctx)
	return err
}

func (s *Store) Upsert(ctx context.Context, path, id string, doc any) error {
	if s.db == nil {
		return fmt.Errorf("remote not open")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (path, id, data, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (path, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		path, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", path, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path, id string) error {
	if s.db == nil {
		return fmt.Errorf("remote not open")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1 AND id = $2`, path, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", path, id, err)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, path string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM documents WHERE path = $1 ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(data))
	}
	return docs, rows.Err()
}

func (s *Store) Subscribe(ctx context.Context, path string, onSnapshot remote.SnapshotFunc, onError remote.ErrorFunc) (remote.Subscription, error) {
	if s.db == nil {
		return nil, fmt.Errorf("remote not open")
	}
	if !remote.ValidPath(path) {
		return nil, fmt.Errorf("invalid collection path: %s", path)
	}
	if err := s.ensureListener(); err != nil {
		return nil, err
	}

	feed := remote.NewFeed(ctx, path, func(ctx context.Context) ([]json.RawMessage, error) {
		return s.fetch(ctx, path)
	}, onSnapshot, onError)

	s.mu.Lock()
	s.feeds[feed] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-feed.Done()
		s.mu.Lock()
		delete(s.feeds, feed)
		s.mu.Unlock()
	}()

	feed.Kick()
	return feed, nil
}

func (s *Store) ensureListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	l := pq.NewListener(s.connStr, constants.ListenerMinReconnect, constants.ListenerMaxReconnect, s.onListenerEvent)
	if err := l.Listen(constants.NotifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("failed to listen on %s: %w", constants.NotifyChannel, err)
	}

	s.listener = l
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.dispatch(l, s.stop, s.stopped)
	return nil
}

// onListenerEvent surfaces connection trouble to every subscriber. pq keeps
// reconnecting on its own; nothing here restarts anything.
func (s *Store) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		if err == nil {
			return
		}
		s.log.Warn("Listener connection problem", "event", ev, "error", err)
		for _, f := range s.snapshotFeeds("") {
			f.Fail(fmt.Errorf("remote listener: %w", err))
		}
	case pq.ListenerEventReconnected:
		s.log.Info("Listener reconnected")
	}
}

func (s *Store) dispatch(l *pq.Listener, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ping := time.NewTicker(constants.ListenerPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-stop:
			return
		case n, ok := <-l.Notify:
			if !ok {
				return
			}
			// nil follows a reconnect: notifications may have been missed
			path := ""
			if n != nil {
				path = n.Extra
			}
			for _, f := range s.snapshotFeeds(path) {
				f.Kick()
			}
		case <-ping.C:
			if err := l.Ping(); err != nil {
				s.log.Debug("Listener ping failed", "error", err)
			}
		}
	}
}

func (s *Store) snapshotFeeds(path string) []*remote.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*remote.Feed
	for f := range s.feeds {
		if path == "" || f.Path == path {
			out = append(out, f)
		}
	}
	return out
}

func (s *Store) Close() error {
	s.mu.Lock()
	feeds := make([]*remote.Feed, 0, len(s.feeds))
	for f := range s.feeds {
		feeds = append(feeds, f)
	}
	l, stop, stopped := s.listener, s.stop, s.stopped
	s.listener = nil
	s.mu.Unlock()

	for _, f := range feeds {
		f.Cancel()
	}

	var firstErr error
	if l != nil {
		close(stop)
		<-stopped
		if err := l.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.db = nil
	}
	return firstErr
}
