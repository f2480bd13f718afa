package storage

import "errors"

var (
	// ErrNotFound is returned by Get when a slot has never been written.
	ErrNotFound = errors.New("slot not found")
	// ErrNotLoaded is returned when a provider is used before Init or Load.
	ErrNotLoaded = errors.New("storage not loaded")
	// ErrNotInitialized is returned by Load when Init has never run.
	ErrNotInitialized = errors.New("storage not initialized, run 'nova init' first")
)

// Provider is a durable key-value slot store for serialized snapshots.
// Implementations hold no decoded state; callers own the collections.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Slots
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Keys() ([]string, error)

	// Utils
	GetConfigPath() string
}
