// Package core holds the ports shared by the job item services and their adapters.
package core

import (
	"context"
	"time"
)

// CacheRepository defines the shared (cross-process) cache tier.
// The core defines the interface and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
