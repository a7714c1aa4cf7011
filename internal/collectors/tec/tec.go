// Package tec collects a global ionospheric total-electron-content
// raster (spec §3 "Raster grid" family).
package tec

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
	cacheKey = "kaos:tec:global"
	ttl      = 1200 * time.Second
)

type Collector struct {
	url     string
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(url string, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{url: url, cache: c, fetcher: f, log: log.With().Str("collector", "tec").Logger()}
}

func (c *Collector) Name() string { return "tec" }

func (c *Collector) Collect(ctx context.Context) error {
	var raster common.Raster
	if err := common.GetJSON(ctx, c.fetcher, c.url, nil, 30000, &raster); err != nil {
		return fmt.Errorf("tec: %w", err)
	}
	if len(raster.Data) != raster.Header.NX*raster.Header.NY {
		return fmt.Errorf("tec: raster shape mismatch: got %d cells, want %d", len(raster.Data), raster.Header.NX*raster.Header.NY)
	}
	out, err := json.Marshal(raster)
	if err != nil {
		return fmt.Errorf("tec: marshal: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, out, ttl)
}
