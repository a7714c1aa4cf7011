// Package spaceweather collects a scalar snapshot of current space
// weather indices (spec §3 "Scalar snapshot" family) from NOAA SWPC's
// public JSON feeds.
package spaceweather

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
	cacheKey = "kaos:space-weather:current"
	ttl      = 1200 * time.Second
	kpURL    = "https://services.swpc.noaa.gov/products/noaa-planetary-k-index.json"
	fluxURL  = "https://services.swpc.noaa.gov/json/f107_cm_flux.json"
	xrayURL  = "https://services.swpc.noaa.gov/json/goes/primary/xrays-3-day.json"
)

type Snapshot struct {
	Kp         float64 `json:"kp"`
	SolarFlux  float64 `json:"solarFlux"`
	XRayClass  string  `json:"xrayClass"`
	ObservedAt int64   `json:"observedAt"`
}

type Collector struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{cache: c, fetcher: f, log: log.With().Str("collector", "space-weather").Logger()}
}

func (c *Collector) Name() string { return "space-weather" }

func (c *Collector) Collect(ctx context.Context) error {
	var kpRows [][]any
	if err := common.GetJSON(ctx, c.fetcher, kpURL, nil, 15000, &kpRows); err != nil {
		return fmt.Errorf("space-weather: kp: %w", err)
	}
	var fluxRows []struct {
		Flux json.Number `json:"flux"`
	}
	if err := common.GetJSON(ctx, c.fetcher, fluxURL, nil, 15000, &fluxRows); err != nil {
		return fmt.Errorf("space-weather: flux: %w", err)
	}
	var xrayRows []struct {
		Class string `json:"class"`
		Time  string `json:"time_tag"`
	}
	if err := common.GetJSON(ctx, c.fetcher, xrayURL, nil, 15000, &xrayRows); err != nil {
		return fmt.Errorf("space-weather: xray: %w", err)
	}

	snap := Snapshot{ObservedAt: time.Now().Unix()}
	if len(kpRows) > 1 {
		if last, ok := kpRows[len(kpRows)-1][1].(string); ok {
			if v, err := json.Number(last).Float64(); err == nil {
				snap.Kp = v
			}
		}
	}
	if len(fluxRows) > 0 {
		if v, err := fluxRows[len(fluxRows)-1].Flux.Float64(); err == nil {
			snap.SolarFlux = v
		}
	}
	if len(xrayRows) > 0 {
		snap.XRayClass = xrayRows[len(xrayRows)-1].Class
	}

	out, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("space-weather: marshal: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, out, ttl)
}
