package port

import (
	"context"
	"time"
)

// Cache is the key-value contract used by the chat backend to keep derived
// read models (per-user conversation lists) close to the API.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ErrMiss when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value with ttl; ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss, distinct from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
