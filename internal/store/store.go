// Package store defines the persistent key-value store shared by the
// secure storage layer and the pending-mutation queue, together with
// file, PostgreSQL and Redis backends.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable string key-value store. Values are opaque to the
// store; encryption, JSON encoding and namespacing happen in the layers
// above. Last write wins; no cross-key transaction support.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all stored keys beginning with prefix, sorted
	// lexicographically. An empty prefix lists every key.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
