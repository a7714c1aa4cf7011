// Package cacheaside implements the read-path cache-aside primitive
// (spec §4.7): check the cache, and on a miss call the fetcher and
// populate the key in the background. No single-flight coalescing —
// decided in DESIGN.md per the open question in spec §9(c): acceptable
// because the fetchers this primitive wraps are idempotent reads.
package cacheaside

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/observability"
)

type Source string

const (
	SourceCache Source = "cache"
	SourceFetch Source = "fetch"
)

// Fetcher performs the actual upstream call and returns the raw bytes to
// store and serve. Kept as raw bytes (not a generic type parameter) so
// the same cache-aside primitive fronts both JSON bodies and PNG tiles.
type Fetcher func(ctx context.Context) ([]byte, error)

type Result struct {
	Data   []byte
	Source Source
}

// Get implements the spec §4.7 algorithm. A nil cache degrades open:
// every call goes straight to fetch and is labeled accordingly.
func Get(ctx context.Context, c cache.Interface, log zerolog.Logger, key string, ttl time.Duration, fetch Fetcher) (Result, error) {
	if c == nil {
		data, err := fetch(ctx)
		if err != nil {
			return Result{}, err
		}
		observability.ObserveCacheAside(string(SourceFetch))
		return Result{Data: data, Source: SourceFetch}, nil
	}

	if cached, err := c.Get(ctx, key); err == nil {
		observability.ObserveCacheAside(string(SourceCache))
		return Result{Data: cached, Source: SourceCache}, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache-aside: cache read failed, falling through to fetch")
	}

	data, err := fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	observability.ObserveCacheAside(string(SourceFetch))

	// Fire-and-forget: a write failure must not affect the response.
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Set(writeCtx, key, data, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache-aside: background write failed")
		}
	}()

	return Result{Data: data, Source: SourceFetch}, nil
}
