package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process DocumentStore. It backs tests and offline sessions.
type Memory struct {
	mu        sync.Mutex
	docs      map[string]map[string]json.RawMessage
	feeds     map[*Feed]struct{}
	writeErr  error
	fetchErr  error
	writes    int
	deletions int
}

var _ DocumentStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string]json.RawMessage),
		feeds: make(map[*Feed]struct{}),
	}
}

func (m *Memory) Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if !ValidPath(path) {
		return nil, fmt.Errorf("invalid collection path: %s", path)
	}
	feed := NewFeed(ctx, path, func(context.Context) ([]json.RawMessage, error) {
		return m.snapshot(path)
	}, onSnapshot, onError)

	m.mu.Lock()
	m.feeds[feed] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-feed.Done()
		m.mu.Lock()
		delete(m.feeds, feed)
		m.mu.Unlock()
	}()

	feed.Kick()
	return feed, nil
}

func (m *Memory) Upsert(_ context.Context, path, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	coll, ok := m.docs[path]
	if !ok {
		coll = make(map[string]json.RawMessage)
		m.docs[path] = coll
	}
	coll[id] = data
	m.writes++
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Delete(_ context.Context, path, id string) error {
	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	delete(m.docs[path], id)
	m.deletions++
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	feeds := make([]*Feed, 0, len(m.feeds))
	for f := range m.feeds {
		feeds = append(feeds, f)
	}
	m.mu.Unlock()

	for _, f := range feeds {
		f.Cancel()
	}
	return nil
}

// Get returns one stored document.
func (m *Memory) Get(path, id string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path][id]
	return doc, ok
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[path])
}

// Stats returns how many upserts and deletes have succeeded.
func (m *Memory) Stats() (writes, deletions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes, m.deletions
}

// FailWrites makes every subsequent Upsert and Delete return err. Pass nil to heal.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// FailListeners makes snapshot fetches fail with err and pokes every feed so
// subscribers observe it. Pass nil to heal.
func (m *Memory) FailListeners(err error) {
	m.mu.Lock()
	m.fetchErr = err
	m.mu.Unlock()

	m.notify("")
}

func (m *Memory) snapshot(path string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fetchErr != nil {
		return nil, m.fetchErr
	}

	coll := m.docs[path]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, append(json.RawMessage(nil), coll[id]...))
	}
	return out, nil
}

// notify kicks feeds on path, or every feed when path is empty.
func (m *Memory) notify(path string) {
	m.mu.Lock()
	var targets []*Feed
	for f := range m.feeds {
		if path == "" || f.Path == path {
			targets = append(targets, f)
		}
	}
	m.mu.Unlock()

	for _, f := range targets {
		f.Kick()
	}
}
