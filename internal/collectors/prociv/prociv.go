// Package prociv collects Portuguese civil-protection occurrence
// reports (spec §3 "Event list" family, §6 kaos:prociv:ocorrencias).
package prociv

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
	cacheKey = "kaos:prociv:ocorrencias"
	ttl      = 600 * time.Second
	feedURL  = "https://prociv.pt/api/ocorrencias"
)

type Collector struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{cache: c, fetcher: f, log: log.With().Str("collector", "prociv").Logger()}
}

func (c *Collector) Name() string { return "prociv" }

func (c *Collector) Collect(ctx context.Context) error {
	body, err := common.GetRaw(ctx, c.fetcher, feedURL, nil, 20000)
	if err != nil {
		return fmt.Errorf("prociv: %w", err)
	}
	return c.cache.Set(ctx, cacheKey, body, ttl)
}
