// Package dirstore is a remote.DocumentStore kept in a directory tree, one JSON
// file per document. Pointing several clients at a shared or synced directory
// gives them live updates through filesystem notifications.
package dirstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/logger"
	"github.com/novaplanner/nova/internal/remote"
)

// Store lays documents out as <root>/<path>/<id>.json.
type Store struct {
	root     string
	debounce time.Duration
	log      *log.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]bool
	feeds   map[*remote.Feed]struct{}
	timers  map[string]*time.Timer
	done    chan struct{}
	closed  bool
}

var _ remote.DocumentStore = (*Store)(nil)

func New(root string) *Store {
	return &Store{
		root:     root,
		debounce: constants.DirStoreDebounce,
		log:      logger.With("remote/dir"),
		watched:  make(map[string]bool),
		feeds:    make(map[*remote.Feed]struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Root returns the directory the store writes into.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) collectionDir(path string) (string, error) {
	if !remote.ValidPath(path) {
		return "", fmt.Errorf("invalid collection path: %s", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}

func (s *Store) Upsert(_ context.Context, path, id string, doc any) error {
	dir, err := s.collectionDir(path)
	if err != nil {
		return err
	}
	if !validID(id) {
		return fmt.Errorf("invalid document id: %q", id)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	// dot-prefixed temp files are invisible to fetch and the watcher filter
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document %s: %w", id, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, id+".json")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit document %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, path, id string) error {
	dir, err := s.collectionDir(path)
	if err != nil {
		return err
	}
	if !validID(id) {
		return fmt.Errorf("invalid document id: %q", id)
	}
	if err := os.Remove(filepath.Join(dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *Store) fetch(path string) ([]json.RawMessage, error) {
	dir, err := s.collectionDir(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]json.RawMessage, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if !json.Valid(data) {
			s.log.Warn("Skipping malformed document", "path", path, "file", name)
			continue
		}
		docs = append(docs, json.RawMessage(data))
	}
	return docs, nil
}

func isDocument(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}

func (s *Store) Subscribe(ctx context.Context, path string, onSnapshot remote.SnapshotFunc, onError remote.ErrorFunc) (remote.Subscription, error) {
	dir, err := s.collectionDir(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	if err := s.watch(dir); err != nil {
		return nil, err
	}

	feed := remote.NewFeed(ctx, path, func(context.Context) ([]json.RawMessage, error) {
		return s.fetch(path)
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

func (s *Store) watch(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("remote closed")
	}
	if s.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		s.watcher = w
		s.done = make(chan struct{})
		go s.loop(w, s.done)
	}
	if s.watched[dir] {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watched[dir] = true
	return nil
}

func (s *Store) loop(w *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !isDocument(filepath.Base(event.Name)) {
				continue
			}
			rel, err := filepath.Rel(s.root, filepath.Dir(event.Name))
			if err != nil {
				continue
			}
			s.schedule(filepath.ToSlash(rel))

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("Watcher error", "error", err)
			for _, f := range s.matching("") {
				f.Fail(fmt.Errorf("remote watcher: %w", err))
			}

		case <-done:
			return
		}
	}
}

// schedule kicks the feeds on path once changes have been quiet for the
// debounce window.
func (s *Store) schedule(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	s.timers[path] = time.AfterFunc(s.debounce, func() {
		for _, f := range s.matching(path) {
			f.Kick()
		}
	})
}

func (s *Store) matching(path string) []*remote.Feed {
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
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	feeds := make([]*remote.Feed, 0, len(s.feeds))
	for f := range s.feeds {
		feeds = append(feeds, f)
	}
	for _, t := range s.timers {
		t.Stop()
	}
	w, done := s.watcher, s.done
	s.watcher = nil
	s.mu.Unlock()

	for _, f := range feeds {
		f.Cancel()
	}
	if w != nil {
		close(done)
		return w.Close()
	}
	return nil
}
