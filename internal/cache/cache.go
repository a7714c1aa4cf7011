// Package cache defines the backend-agnostic cache façade (spec §4.1)
// used by every collector and by the read-side cache-aside primitive.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent (or expired).
var ErrMiss = errors.New("cache: key not found")

// Interface is implemented by both the direct (Redis socket) and HTTP
// (REST) backends. Callers never know which one they're talking to.
type Interface interface {
	// Get returns the raw stored value, or ErrMiss if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set serializes val with a TTL. ttl<=0 means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Keys returns all keys matching pattern (only used by the health surface).
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Pipeline groups independent writes for latency.
	Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
