// Package kiwisdr collects the public KiwiSDR receiver directory and
// stores it compacted (spec §3 "Compact aircraft/kiwisdr records").
package kiwisdr

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const (
	cacheKey = "kaos:kiwisdr:stations"
	ttl      = 5400 * time.Second
	feedURL  = "http://kiwisdr.com/public/"
)

type Full struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Users int     `json:"users,omitempty"`
	Quota int     `json:"quota,omitempty"`
}

type Record struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Users int     `json:"users,omitempty"`
	Quota int     `json:"quota,omitempty"`
}

func Compact(f Full) Record {
	return Record{
		Name:  f.Name,
		Lat:   math.Round(f.Lat*1000) / 1000,
		Lon:   math.Round(f.Lon*1000) / 1000,
		Users: f.Users,
		Quota: f.Quota,
	}
}

func Expand(r Record) Full {
	return Full{Name: r.Name, Lat: r.Lat, Lon: r.Lon, Users: r.Users, Quota: r.Quota}
}

type Collector struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{cache: c, fetcher: f, log: log.With().Str("collector", "kiwisdr").Logger()}
}

func (c *Collector) Name() string { return "kiwisdr" }

func (c *Collector) Collect(ctx context.Context) error {
	var stations []Full
	if err := common.GetJSON(ctx, c.fetcher, feedURL, nil, 20000, &stations); err != nil {
		return fmt.Errorf("kiwisdr: %w", err)
	}

	records := make([]Record, 0, len(stations))
	for _, s := range stations {
		records = append(records, Compact(s))
	}

	out, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("kiwisdr: marshal: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, out, ttl)
}
