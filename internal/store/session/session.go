// Package session defines the key/value protocol the session manager speaks
// to its external cache. Values are opaque strings, (de)serialization of
// session records is the caller's responsibility, not the store's.
package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("session: not found")

// Store is the cache protocol: one record per key, reads and writes of a
// single key are atomic at the store level. Concurrent refreshes of the same
// session may race; last writer wins, which is acceptable because a refresh
// race only re-derives an equivalent access token.
type Store interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Del removes key and reports how many records were removed. Deleting
	// an absent key is not an error.
	Del(ctx context.Context, key string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
