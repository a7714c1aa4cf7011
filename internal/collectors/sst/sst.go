// Package sst collects a global sea-surface-temperature raster (spec
// §3 "Raster grid" family, §6 kaos:sst:global).
package sst

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const (
	cacheKey = "kaos:sst:global"
	ttl      = 5400 * time.Second
)

type Collector struct {
	url     string
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(url string, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{url: url, cache: c, fetcher: f, log: log.With().Str("collector", "sst").Logger()}
}

func (c *Collector) Name() string { return "sst" }

func (c *Collector) Collect(ctx context.Context) error {
	var raster common.Raster
	if err := common.GetJSON(ctx, c.fetcher, c.url, nil, 60000, &raster); err != nil {
		return fmt.Errorf("sst: %w", err)
	}
	if len(raster.Data) != raster.Header.NX*raster.Header.NY {
		return fmt.Errorf("sst: raster shape mismatch: got %d cells, want %d", len(raster.Data), raster.Header.NX*raster.Header.NY)
	}
	out, err := json.Marshal(raster)
	if err != nil {
		return fmt.Errorf("sst: marshal: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, out, ttl)
}
