package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/logger"
)

// envelope wraps every persisted collection so a future field change can be
// migrated instead of silently dropping data.
type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Items         json.RawMessage `json:"items"`
}

// Save serializes the full collection into the named slot.
func Save[T any](p Provider, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	data, err := json.Marshal(envelope{
		SchemaVersion: constants.SnapshotSchemaVersion,
		Items:         raw,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	if err := p.Put(key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Load returns the collection stored in the named slot. A missing slot, an
// unreadable blob, or a schema newer than this build all yield an empty collection.
func Load[T any](p Provider, key string) []T {
	data, err := p.Get(key)
	if err != nil {
		if err != ErrNotFound {
			logger.Warn("Failed to read snapshot", "key", key, "error", err)
		}
		return []T{}
	}

	items, err := Decode[T](data)
	if err != nil {
		logger.Warn("Discarding unreadable snapshot", "key", key, "error", err)
		return []T{}
	}
	return items
}

// Decode parses a slot blob. Bare JSON arrays written before the envelope existed
// are accepted as schema version 0.
func Decode[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}

	raw := json.RawMessage(trimmed)
	if trimmed[0] != '[' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		if env.SchemaVersion > constants.SnapshotSchemaVersion {
			return nil, fmt.Errorf("snapshot schema version %d is newer than supported version %d", env.SchemaVersion, constants.SnapshotSchemaVersion)
		}
		raw = env.Items
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
