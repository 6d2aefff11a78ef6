// Package history keeps bounded, deduplicated lists of recent and saved
// query strings, persisted through a durable key-value storage collaborator.
package history

import "context"

// Storage keys. Each holds a JSON-encoded list of history entries.
const (
	KeyRecent = "history:recent"
	KeySaved  = "history:saved"
)

// Storage is the string-keyed durable storage consumed by the store.
// Get returns (nil, nil) when the key is absent; absence is not an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
