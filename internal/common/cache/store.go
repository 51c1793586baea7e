package cache

import (
	"context"
	"time"
)

// Store is the key-value surface the client needs from a cache backend.
// Get returns "" and no error when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
