// Package fires collects active-fire detections from one or more
// providers over one or more lookback windows, writing each
// (source, days) pair to its own key (spec §6 kaos:fires:{source}:{days}).
package fires

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const ttl = 1200 * time.Second

// Feed is one (source, window) combination the collector polls each tick.
type Feed struct {
	Source string // e.g. "modis", "viirs"
	Days   int
	URL    string // NASA FIRMS CSV/JSON endpoint for this source+window, API key appended by caller
}

type Collector struct {
	apiKey  string
	feeds   []Feed
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(apiKey string, feeds []Feed, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{apiKey: apiKey, feeds: feeds, cache: c, fetcher: f, log: log.With().Str("collector", "fires").Logger()}
}

func (c *Collector) Name() string { return "fires" }

func (c *Collector) Collect(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("fires: FIRES_API_KEY not configured")
	}
	for _, feed := range c.feeds {
		body, err := common.GetRaw(ctx, c.fetcher, feed.URL, map[string]string{"MAP_KEY": c.apiKey}, 30000)
		if err != nil {
			return fmt.Errorf("fires %s/%dd: %w", feed.Source, feed.Days, err)
		}
		key := fmt.Sprintf("kaos:fires:%s:%d", feed.Source, feed.Days)
		if err := c.cache.Set(ctx, key, body, ttl); err != nil {
			return fmt.Errorf("fires %s/%dd: cache set: %w", feed.Source, feed.Days, err)
		}
	}
	return nil
}
