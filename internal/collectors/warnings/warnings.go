// Package warnings stores the IPMA civil warnings feed verbatim (spec
// §3 "Geo-JSON passthrough" family, §6 kaos:warnings:ipma).
package warnings

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
	cacheKey = "kaos:warnings:ipma"
	ttl      = 2700 * time.Second
	feedURL  = "https://api.ipma.pt/open-data/forecast/warnings/warnings_www.json"
)

type Collector struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{cache: c, fetcher: f, log: log.With().Str("collector", "warnings").Logger()}
}

func (c *Collector) Name() string { return "warnings" }

func (c *Collector) Collect(ctx context.Context) error {
	body, err := common.GetRaw(ctx, c.fetcher, feedURL, nil, 30000)
	if err != nil {
		return fmt.Errorf("warnings: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, body, ttl)
}
