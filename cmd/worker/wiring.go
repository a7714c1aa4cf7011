package main

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/collector"
	"github.com/kaos-observability/ingest/internal/collectors/aircraft"
	"github.com/kaos-observability/ingest/internal/collectors/airquality"
	"github.com/kaos-observability/ingest/internal/collectors/aprs"
	"github.com/kaos-observability/ingest/internal/collectors/aurora"
	"github.com/kaos-observability/ingest/internal/collectors/fires"
	"github.com/kaos-observability/ingest/internal/collectors/gdacs"
	"github.com/kaos-observability/ingest/internal/collectors/gfs"
	"github.com/kaos-observability/ingest/internal/collectors/kiwisdr"
	"github.com/kaos-observability/ingest/internal/collectors/lightning"
	"github.com/kaos-observability/ingest/internal/collectors/oceancurrents"
	"github.com/kaos-observability/ingest/internal/collectors/prociv"
	"github.com/kaos-observability/ingest/internal/collectors/seismic"
	"github.com/kaos-observability/ingest/internal/collectors/spaceweather"
	"github.com/kaos-observability/ingest/internal/collectors/sst"
	"github.com/kaos-observability/ingest/internal/collectors/tec"
	"github.com/kaos-observability/ingest/internal/collectors/warnings"
	"github.com/kaos-observability/ingest/internal/collectors/waves"
	"github.com/kaos-observability/ingest/internal/config"
	"github.com/kaos-observability/ingest/internal/fetcher"
	"github.com/kaos-observability/ingest/internal/httpclient"
	"github.com/kaos-observability/ingest/internal/scheduler"
	"github.com/kaos-observability/ingest/internal/source"
)

func newFetcher(cfg config.Config) *fetcher.Fetcher {
	return fetcher.New(httpclient.NewOutbound(), clock.New())
}

// addInterval builds a Runner for c and schedules it at interval,
// skipping registration entirely when cfg disables it by name (spec
// §6 Configuration: per-collector DISABLE_* flags).
func addInterval(sched *scheduler.Scheduler, cfg config.Config, c cache.Interface, ck clock.Clock, log zerolog.Logger, iv collector.Interval, interval time.Duration) {
	if cfg.IsDisabled(iv.Name()) {
		log.Info().Str("collector", iv.Name()).Msg("collector disabled by configuration")
		return
	}
	runner := collector.NewRunner(iv, c, ck, log, cfg.DefaultRetries, cfg.DefaultRetryDelay)
	sched.AddInterval(runner, interval)
}

// Scheduled periods stay at or under each collector's cache TTL divided by
// 1.5 (spec §3 freshness invariant: TTL >= 1.5 * period), so a cached value
// never goes stale before the next run has a chance to refresh it.
func registerIntervalCollectors(sched *scheduler.Scheduler, cfg config.Config, c cache.Interface, f *fetcher.Fetcher, ck clock.Clock, log zerolog.Logger) {
	addInterval(sched, cfg, c, ck, log, seismic.New(c, f, log), 100*time.Second)
	addInterval(sched, cfg, c, ck, log, spaceweather.New(c, f, log), 12*time.Minute)
	addInterval(sched, cfg, c, ck, log, tec.New("https://example-geophysics.invalid/tec/global.json", c, f, log), 12*time.Minute)
	addInterval(sched, cfg, c, ck, log, aurora.New("https://services.swpc.noaa.gov/json/ovation_aurora_latest.json", c, f, log), 6*time.Minute)
	addInterval(sched, cfg, c, ck, log, warnings.New(c, f, log), 25*time.Minute)
	addInterval(sched, cfg, c, ck, log, prociv.New(c, f, log), 6*time.Minute)
	addInterval(sched, cfg, c, ck, log, gdacs.New(c, f, log), 6*time.Minute)
	addInterval(sched, cfg, c, ck, log, kiwisdr.New(c, f, log), 55*time.Minute)
	addInterval(sched, cfg, c, ck, log, oceancurrents.New("https://example-geophysics.invalid/ocean-currents/global.json", c, f, log), 55*time.Minute)
	addInterval(sched, cfg, c, ck, log, waves.New("https://example-geophysics.invalid/waves/global.json", c, f, log), 55*time.Minute)
	addInterval(sched, cfg, c, ck, log, sst.New("https://example-geophysics.invalid/sst/global.json", c, f, log), 55*time.Minute)
	addInterval(sched, cfg, c, ck, log, airquality.New("https://example-geophysics.invalid/air-quality/idw.json", cfg.AirQualityKey, c, f, log), 12*time.Minute)
	addInterval(sched, cfg, c, ck, log, aircraft.New(cfg.AircraftOAuthID, cfg.AircraftOAuthSecret, c, f, ck, log), 70*time.Second)

	addInterval(sched, cfg, c, ck, log, gfs.New(gfsLayers(), "https://example-geophysics.invalid/gfs/wind.json", c, f, log), 55*time.Minute)

	addInterval(sched, cfg, c, ck, log, fires.New(cfg.FiresAPIKey, firesFeeds(cfg.FiresAPIKey), c, f, log), 12*time.Minute)
}

func gfsLayers() []gfs.Layer {
	names := []string{"temperature", "humidity", "precipitation", "cloud-cover", "cape", "fire-weather", "uv-index"}
	layers := make([]gfs.Layer, 0, len(names))
	for _, n := range names {
		layers = append(layers, gfs.Layer{Name: n, URL: "https://example-geophysics.invalid/gfs/" + n + ".json"})
	}
	return layers
}

func firesFeeds(apiKey string) []fires.Feed {
	sources := []struct {
		name string
		days int
	}{
		{"modis", 1}, {"modis", 7}, {"viirs", 1}, {"viirs", 7},
	}
	feeds := make([]fires.Feed, 0, len(sources))
	for _, s := range sources {
		url := "https://firms.modaps.eosdis.nasa.gov/api/area/csv/" + apiKey + "/" + s.name + "/world/" + strconv.Itoa(s.days)
		feeds = append(feeds, fires.Feed{Source: s.name, Days: s.days, URL: url})
	}
	return feeds
}

func registerStreamCollectors(sched *scheduler.Scheduler, cfg config.Config, c cache.Interface, ck clock.Clock, log zerolog.Logger) {
	if !cfg.IsDisabled("lightning") {
		lc := lightning.New(cfg.LightningURLs, c, ck, log)
		sched.AddStream(collector.NewStreamRunner(lc, ck, log, 5*time.Second, 2*time.Minute))
	} else {
		log.Info().Str("collector", "lightning").Msg("collector disabled by configuration")
	}

	if !cfg.IsDisabled("aprs") {
		ac := aprs.New(cfg.APRSGateways, "", "", c, ck, log)
		sched.AddStream(collector.NewStreamRunner(ac, ck, log, 5*time.Second, 2*time.Minute))
	} else {
		log.Info().Str("collector", "aprs").Msg("collector disabled by configuration")
	}
}

func registerSourceDeclarations(sched *scheduler.Scheduler, cfg config.Config, c cache.Interface, f *fetcher.Fetcher, ck clock.Clock, log zerolog.Logger) {
	decls, err := source.Load(cfg.SourceDeclDir, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SourceDeclDir).Msg("failed to load source declarations")
	}
	for _, d := range decls {
		gc := source.New(d, c, f, log)
		addInterval(sched, cfg, c, ck, log, gc, d.Interval())
	}
}
