// Package remote defines the document-store contract the planner syncs against:
// a standing subscription that delivers the entire collection on every change,
// plus upsert and delete keyed by document id.
package remote

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/novaplanner/nova/internal/constants"
)

// SnapshotFunc receives every document currently in a collection.
type SnapshotFunc func(docs []json.RawMessage)

// ErrorFunc receives listener failures. The subscription is not restarted.
type ErrorFunc func(err error)

// Subscription is a cancellable handle returned by Subscribe.
type Subscription interface {
	Cancel()
}

// DocumentStore is a remote collection store with snapshot listeners.
type DocumentStore interface {
	Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Upsert(ctx context.Context, path, id string, doc any) error
	Delete(ctx context.Context, path, id string) error
	Close() error
}

// GoalsPath is the per-user goals collection.
func GoalsPath(userID string) string {
	return "users/" + userID + "/" + constants.GoalsCollection
}

// FoldersPath is the per-user folders collection.
func FoldersPath(userID string) string {
	return "users/" + userID + "/" + constants.FoldersCollection
}

// ValidPath reports whether path is a users/<uid>/<collection> path with no
// traversal segments.
func ValidPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != "users" {
		return false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\`) {
			return false
		}
	}
	return true
}

// DecodeDocs unmarshals a snapshot, skipping documents that fail to parse.
func DecodeDocs[T any](docs []json.RawMessage, logger *log.Logger) []T {
	out := make([]T, 0, len(docs))
	for i, raw := range docs {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			if logger != nil {
				logger.Warn("Skipping undecodable remote document", "index", i, "error", err)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
