// Package aurora stores the provider's aurora-probability GeoJSON
// verbatim (spec §3 "Geo-JSON passthrough" family).
package aurora

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
	cacheKey = "kaos:aurora:latest"
	ttl      = 600 * time.Second
)

type Collector struct {
	url     string
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(url string, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{url: url, cache: c, fetcher: f, log: log.With().Str("collector", "aurora").Logger()}
}

func (c *Collector) Name() string { return "aurora" }

func (c *Collector) Collect(ctx context.Context) error {
	body, err := common.GetRaw(ctx, c.fetcher, c.url, nil, 30000)
	if err != nil {
		return fmt.Errorf("aurora: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, body, ttl)
}
