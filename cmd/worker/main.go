// Command worker runs the collection engine: it wires the cache
// client, builds every interval and stream collector, and drives them
// from the scheduler until signalled to shut down. Grounded on the
// teacher's cmd/server main (service wiring, signal-driven graceful
// shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/cache/httpstore"
	"github.com/kaos-observability/ingest/internal/cache/redisstore"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/config"
	"github.com/kaos-observability/ingest/internal/health"
	"github.com/kaos-observability/ingest/internal/httpclient"
	"github.com/kaos-observability/ingest/internal/logger"
	"github.com/kaos-observability/ingest/internal/middleware"
	"github.com/kaos-observability/ingest/internal/observability"
	"github.com/kaos-observability/ingest/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	log := logger.Build(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Component: "worker"}, os.Stdout)

	observability.Init(prometheus.DefaultRegisterer, true)

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

	ck := clock.New()
	fetch := newFetcher(cfg)
	sched := scheduler.New(log)

	registerIntervalCollectors(sched, cfg, c, fetch, ck, log)
	registerStreamCollectors(sched, cfg, c, ck, log)
	registerSourceDeclarations(sched, cfg, c, fetch, ck, log)

	sched.Start(ctx)

	hs := health.New(c, sched, log, startedAt)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", hs.Health)
	healthMux.HandleFunc("/ready", hs.Ready)
	healthMux.HandleFunc("/live", hs.Live)
	healthMux.Handle("/metrics", promhttp.Handler())

	healthSrv := &http.Server{Addr: cfg.Addr, Handler: middleware.CORS()(healthMux)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("health surface listening")
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health surface stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	sched.Stop()
	log.Info().Msg("worker stopped")
}

func redisDirectCtor(ctx context.Context, addr string) (cache.Interface, error) {
	return redisstore.New(ctx, addr)
}

func httpCacheCtor(baseURL, token string, client *http.Client) (cache.Interface, error) {
	return httpstore.New(baseURL, token, client)
}
