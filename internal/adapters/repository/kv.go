// Package repository persists the source records of the league (teams,
// events, the sequence counter and the notification feed) in a durable
// key-value store. Derived standings are never stored.
package repository

import "context"

// Pair is one key with its encoded value.
type Pair struct {
	Key   string
	Value []byte
}

// KV is the durable key-value store behind Records. Every mutation of the
// league writes exactly one key, so no transactions are required.
type KV interface {
	// Get returns ErrNotFound if key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every pair whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Pair, error)
	// Driver names the backend for logs and metrics.
	Driver() string
	Close() error
}
