// Package airquality collects a global air-quality raster produced by
// inverse-distance-weighting station readings (spec §3 "Raster grid"
// family, §6 kaos:air-quality:global).
package airquality

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
	cacheKey = "kaos:air-quality:global"
	ttl      = 1200 * time.Second
)

type Collector struct {
	url     string
	apiKey  string
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(url, apiKey string, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{url: url, apiKey: apiKey, cache: c, fetcher: f, log: log.With().Str("collector", "air-quality").Logger()}
}

func (c *Collector) Name() string { return "air-quality" }

func (c *Collector) Collect(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("air-quality: AIR_QUALITY_API_KEY not configured")
	}
	var raster common.Raster
	if err := common.GetJSON(ctx, c.fetcher, c.url, map[string]string{"X-API-Key": c.apiKey}, 30000, &raster); err != nil {
		return fmt.Errorf("air-quality: %w", err)
	}
	if len(raster.Data) != raster.Header.NX*raster.Header.NY {
		return fmt.Errorf("air-quality: raster shape mismatch: got %d cells, want %d", len(raster.Data), raster.Header.NX*raster.Header.NY)
	}
	out, err := json.Marshal(raster)
	if err != nil {
		return fmt.Errorf("air-quality: marshal: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, out, ttl)
}
