// Package cache provides the persistent translation cache and its storage backends.
package cache

import "context"

// Storage is the pluggable key-value persistence used by Store.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the stored bytes. The bool is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
