// Package observability registers and updates the Prometheus metrics for
// the collection engine: collector runs, cache operations, outbound
// fetches, and websocket lifecycle, plus the read-side HTTP handlers.
package observability

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

// Init registers all collectors against r when isEnabled is true. Call once
// from main.
func Init(r prometheus.Registerer, isEnabled bool) {
	enabled.Store(isEnabled)
	if !isEnabled || r == nil {
		return
	}
	initCollectors(r)
}

func Enabled() bool { return enabled.Load() }

var (
	collectorRunsTotal     *prometheus.CounterVec
	collectorRunDuration   *prometheus.HistogramVec
	collectorStatus        *prometheus.GaugeVec
	collectorConsecErrors  *prometheus.GaugeVec
	cacheOpTotal           *prometheus.CounterVec
	cacheOpDuration        *prometheus.HistogramVec
	fetchAttemptsTotal     *prometheus.CounterVec
	fetchDuration          *prometheus.HistogramVec
	wsConnectionsTotal     *prometheus.CounterVec
	wsReconnectFailures    *prometheus.GaugeVec
	wsBufferSize           *prometheus.GaugeVec
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	cacheAsideSourceTotal  *prometheus.CounterVec
)

func initCollectors(r prometheus.Registerer) {
	collectorRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "collector_runs_total", Help: "Collector run outcomes."},
		[]string{"collector", "outcome"},
	)
	collectorRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "collector_run_duration_seconds", Help: "Collector run duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 14)},
		[]string{"collector"},
	)
	collectorStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "collector_status", Help: "Collector status: 0=ok, 1=degraded, 2=error."},
		[]string{"collector"},
	)
	collectorConsecErrors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "collector_consecutive_errors", Help: "Consecutive failed runs for a collector."},
		[]string{"collector"},
	)
	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_op_total", Help: "Cache operations by op and outcome."},
		[]string{"op", "outcome"},
	)
	cacheOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cache_op_duration_seconds", Help: "Cache operation latency in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15)},
		[]string{"op"},
	)
	fetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_attempts_total", Help: "Outbound HTTP fetch attempts by outcome."},
		[]string{"outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "fetch_duration_seconds", Help: "Outbound HTTP fetch latency in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 14)},
		[]string{"outcome"},
	)
	wsConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ws_connections_total", Help: "Websocket collector connection attempts by outcome."},
		[]string{"collector", "outcome"},
	)
	wsReconnectFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "ws_reconnect_failures", Help: "Failed or dropped websocket connections counted by the stream runner since it started; not reset by a successful connection."},
		[]string{"collector"},
	)
	wsBufferSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "ws_buffer_size", Help: "Current in-memory record buffer size for a websocket collector."},
		[]string{"collector"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Read-side HTTP requests by route and status."},
		[]string{"route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Read-side HTTP request duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15)},
		[]string{"route", "status"},
	)
	cacheAsideSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_aside_source_total", Help: "Cache-aside responses by source (cache|fetch)."},
		[]string{"source"},
	)

	r.MustRegister(
		collectorRunsTotal, collectorRunDuration, collectorStatus, collectorConsecErrors,
		cacheOpTotal, cacheOpDuration,
		fetchAttemptsTotal, fetchDuration,
		wsConnectionsTotal, wsReconnectFailures, wsBufferSize,
		httpRequestsTotal, httpRequestDuration,
		cacheAsideSourceTotal,
	)
}

func ObserveCollectorRun(name, outcome string, dur time.Duration) {
	if !enabled.Load() || collectorRunsTotal == nil {
		return
	}
	collectorRunsTotal.WithLabelValues(name, outcome).Inc()
	collectorRunDuration.WithLabelValues(name).Observe(dur.Seconds())
}

// SetCollectorStatus reports the {ok,degraded,error} status as a gauge value.
func SetCollectorStatus(name, status string, consecutiveErrors int) {
	if !enabled.Load() || collectorStatus == nil {
		return
	}
	v := 0.0
	switch status {
	case "degraded":
		v = 1
	case "error":
		v = 2
	}
	collectorStatus.WithLabelValues(name).Set(v)
	collectorConsecErrors.WithLabelValues(name).Set(float64(consecutiveErrors))
}

func ObserveCacheOp(op string, err error, dur time.Duration) {
	if !enabled.Load() || cacheOpTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cacheOpTotal.WithLabelValues(op, outcome).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(dur.Seconds())
}

func ObserveFetch(outcome string, dur time.Duration) {
	if !enabled.Load() || fetchAttemptsTotal == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
	fetchDuration.WithLabelValues(outcome).Observe(dur.Seconds())
}

func ObserveWSConnection(collector, outcome string) {
	if !enabled.Load() || wsConnectionsTotal == nil {
		return
	}
	wsConnectionsTotal.WithLabelValues(collector, outcome).Inc()
}

func SetWSReconnectFailures(collector string, n int) {
	if !enabled.Load() || wsReconnectFailures == nil {
		return
	}
	wsReconnectFailures.WithLabelValues(collector).Set(float64(n))
}

func SetWSBufferSize(collector string, n int) {
	if !enabled.Load() || wsBufferSize == nil {
		return
	}
	wsBufferSize.WithLabelValues(collector).Set(float64(n))
}

func ObserveHTTP(route string, status int, dur time.Duration) {
	if !enabled.Load() || httpRequestsTotal == nil {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(route, st).Inc()
	httpRequestDuration.WithLabelValues(route, st).Observe(dur.Seconds())
}

func ObserveCacheAside(source string) {
	if !enabled.Load() || cacheAsideSourceTotal == nil {
		return
	}
	if source != "cache" && source != "fetch" {
		source = "fetch"
	}
	cacheAsideSourceTotal.WithLabelValues(source).Inc()
}
