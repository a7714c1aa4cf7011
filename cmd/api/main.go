// Command api runs the read-side HTTP server: it answers requests by
// reading the worker's cache keys and, for per-user-parameterized
// data, performs cache-aside fetch-through.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaos-observability/ingest/internal/api"
	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/cache/httpstore"
	"github.com/kaos-observability/ingest/internal/cache/redisstore"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/config"
	"github.com/kaos-observability/ingest/internal/fetcher"
	"github.com/kaos-observability/ingest/internal/health"
	"github.com/kaos-observability/ingest/internal/httpclient"
	"github.com/kaos-observability/ingest/internal/logger"
)

func main() {
	cfg := config.FromEnv()
	log := logger.Build(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Component: "api"}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()

	c, err := cache.New(ctx, cache.Config{
		Mode:       cfg.CacheMode,
		RedisAddr:  cfg.RedisAddr,
		HTTPURL:    cfg.CacheHTTPURL,
		HTTPToken:  cfg.CacheHTTPToken,
		HTTPClient: httpclient.NewOutbound(),
	}, redisDirectCtor, httpCacheCtor)
	if err != nil {
		log.Fatal().Err(err).Msg("cache init failed")
	}

	fetch := fetcher.New(httpclient.NewOutbound(), clock.New())
	srv := api.NewServer(c, fetch, log, cfg.OpenWeatherKey)

	// No in-process scheduler on this side of the split (collection
	// runs in cmd/worker); Health falls back entirely to the
	// meta:*:status keys the worker's Runners write to the cache.
	hs := health.New(c, nil, log, startedAt)

	mux := http.NewServeMux()
	mux.Handle("/", srv.Router())
	mux.HandleFunc("/health", hs.Health)
	mux.HandleFunc("/ready", hs.Ready)
	mux.HandleFunc("/live", hs.Live)
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{Addr: cfg.APIAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.APIAddr).Msg("read api listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("read api stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func redisDirectCtor(ctx context.Context, addr string) (cache.Interface, error) {
	return redisstore.New(ctx, addr)
}

func httpCacheCtor(baseURL, token string, client *http.Client) (cache.Interface, error) {
	return httpstore.New(baseURL, token, client)
}
