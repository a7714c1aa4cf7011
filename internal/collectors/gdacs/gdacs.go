// Package gdacs collects the Global Disaster Alert and Coordination
// System's current events RSS-over-JSON feed (spec §3 "Event list"
// family, §6 kaos:gdacs:events, §8 scenario 4 "cache miss 503").
package gdacs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const (
	cacheKey = "kaos:gdacs:events"
	ttl      = 600 * time.Second
	feedURL  = "https://www.gdacs.org/gdacsapi/api/events/geteventlist/SEARCH"
)

type Collector struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{cache: c, fetcher: f, log: log.With().Str("collector", "gdacs").Logger()}
}

func (c *Collector) Name() string { return "gdacs" }

func (c *Collector) Collect(ctx context.Context) error {
	body, err := common.GetRaw(ctx, c.fetcher, feedURL, nil, 20000)
	if err != nil {
		return fmt.Errorf("gdacs: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, body, ttl)
}
