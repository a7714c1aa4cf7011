// Package gfs collects several GFS-model raster layers and one vector
// (wind) layer in a single pass (spec §6 kaos:gfs:{layer}).
package gfs

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

const ttl = 5400 * time.Second

// Layer pairs a public layer name (used in the cache key) with its
// upstream raster endpoint; New takes the list as scalarLayers.
type Layer struct {
	Name string
	URL  string
}

type Collector struct {
	scalarLayers []Layer
	windURL      string
	cache        cache.Interface
	fetcher      *fetcher.Fetcher
	log          zerolog.Logger
}

func New(scalarLayers []Layer, windURL string, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{
		scalarLayers: scalarLayers,
		windURL:      windURL,
		cache:        c,
		fetcher:      f,
		log:          log.With().Str("collector", "gfs").Logger(),
	}
}

func (c *Collector) Name() string { return "gfs" }

func (c *Collector) Collect(ctx context.Context) error {
	for _, layer := range c.scalarLayers {
		var raster common.Raster
		if err := common.GetJSON(ctx, c.fetcher, layer.URL, nil, 60000, &raster); err != nil {
			return fmt.Errorf("gfs %s: %w", layer.Name, err)
		}
		if len(raster.Data) != raster.Header.NX*raster.Header.NY {
			return fmt.Errorf("gfs %s: raster shape mismatch: got %d cells, want %d", layer.Name, len(raster.Data), raster.Header.NX*raster.Header.NY)
		}
		out, err := json.Marshal(raster)
		if err != nil {
			return fmt.Errorf("gfs %s: marshal: %w", layer.Name, err)
		}
		if err := c.cache.Set(ctx, "kaos:gfs:"+layer.Name, out, ttl); err != nil {
			return fmt.Errorf("gfs %s: cache set: %w", layer.Name, err)
		}
	}

	if c.windURL != "" {
		var vec common.Vector
		if err := common.GetJSON(ctx, c.fetcher, c.windURL, nil, 60000, &vec); err != nil {
			return fmt.Errorf("gfs wind: %w", err)
		}
		n := vec.Header.NX * vec.Header.NY
		if len(vec.U) != n || len(vec.V) != n {
			return fmt.Errorf("gfs wind: vector shape mismatch: got u=%d v=%d, want %d", len(vec.U), len(vec.V), n)
		}
		out, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("gfs wind: marshal: %w", err)
		}
		if err := c.cache.Set(ctx, "kaos:gfs:wind", out, ttl); err != nil {
			return fmt.Errorf("gfs wind: cache set: %w", err)
		}
	}
	return nil
}
