package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the shared key-value backing for rate-limit counters.
// Keys expire automatically; counters for a bucket must never outlive
// their window plus slack.
type CounterStore interface {
	// Incr atomically increments the counter at key and returns the new
	// value. The TTL is applied when the key is created (or recreated
	// after expiry); it is not extended on subsequent increments, so a
	// bucket's counter dies with its window. The read-check-then-increment
	// must be a single store-side operation: concurrent searches from
	// different processes share these keys.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current counter value, or 0 if the key is missing
	// or expired. Never mutates.
	Get(ctx context.Context, key string) (int64, error)

	Close() error
}
