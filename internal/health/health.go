// Package health implements the small HTTP listener exposing liveness,
// readiness, and a rollup status (spec §6), grounded on the teacher's
// health handlers (internal/core/observability health endpoints) but
// rewired to read the scheduler's in-memory job table instead of a
// spatial-cache rollup.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/collector"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Scheduler is the subset of scheduler.Scheduler health needs; kept as
// an interface so this package doesn't import scheduler (scheduler
// already imports collector, which is enough of a dependency chain).
type Scheduler interface {
	Status() []collector.Meta
}

type Surface struct {
	cache     cache.Interface
	scheduler Scheduler
	log       zerolog.Logger
	startedAt time.Time
}

func New(c cache.Interface, s Scheduler, log zerolog.Logger, startedAt time.Time) *Surface {
	return &Surface{cache: c, scheduler: s, log: log, startedAt: startedAt}
}

type collectorView struct {
	Status     string `json:"status"`
	LastRunMs  int64  `json:"lastRun"`
	ErrorCount int    `json:"errorCount"`
}

type schedulerView struct {
	Running bool `json:"running"`
	Jobs    int  `json:"jobs"`
}

type healthBody struct {
	Status     Status                   `json:"status"`
	UptimeSecs int64                    `json:"uptime"`
	Redis      string                   `json:"redis"`
	Scheduler  schedulerView            `json:"scheduler"`
	Collectors map[string]collectorView `json:"collectors"`
}

func (s *Surface) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	redisOK := s.cache != nil && s.cache.Ping(ctx) == nil

	collectors := make(map[string]collectorView)
	allOK := true

	if s.scheduler != nil {
		for _, m := range s.scheduler.Status() {
			collectors[m.Name] = collectorView{
				Status:     string(m.Status),
				LastRunMs:  m.LastRunAt.UnixMilli(),
				ErrorCount: m.ConsecutiveErrors,
			}
			if m.Status != collector.StatusOK {
				allOK = false
			}
		}
	}

	// Fill in (never overwrite) from the meta:*:status keys every
	// Runner writes via writeMeta, so a process with no in-memory
	// scheduler of its own (cmd/api) still reports per-collector
	// status, and a worker process picks up collectors it doesn't run
	// itself (generic source declarations loaded elsewhere, etc).
	if redisOK {
		cached, err := s.collectorsFromCache(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("health: failed to read collector metadata from cache")
		}
		for name, v := range cached {
			if _, ok := collectors[name]; ok {
				continue
			}
			collectors[name] = v
			if v.Status != string(collector.StatusOK) {
				allOK = false
			}
		}
	}

	status := StatusHealthy
	code := http.StatusOK
	switch {
	case !redisOK:
		status = StatusUnhealthy
		code = http.StatusInternalServerError
	case !allOK:
		status = StatusDegraded
	}

	body := healthBody{
		Status:     status,
		UptimeSecs: int64(time.Since(s.startedAt).Seconds()),
		Redis:      redisString(redisOK),
		Scheduler:  schedulerView{Running: s.scheduler != nil, Jobs: len(collectors)},
		Collectors: collectors,
	}

	writeJSON(w, code, body)
}

// collectorsFromCache reads back the meta:<name>:status keys every
// Runner writes (spec §3, §6) and the paired last-run/error-count
// keys alongside them.
func (s *Surface) collectorsFromCache(ctx context.Context) (map[string]collectorView, error) {
	keys, err := s.cache.Keys(ctx, "meta:*:status")
	if err != nil {
		return nil, err
	}
	out := make(map[string]collectorView, len(keys))
	for _, k := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(k, "meta:"), ":status")
		if name == "" {
			continue
		}
		statusRaw, err := s.cache.Get(ctx, k)
		if err != nil {
			continue
		}
		v := collectorView{Status: string(statusRaw)}
		if raw, err := s.cache.Get(ctx, "meta:"+name+":last-run"); err == nil {
			if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
				v.LastRunMs = ms
			}
		}
		if raw, err := s.cache.Get(ctx, "meta:"+name+":error-count"); err == nil {
			if n, err := strconv.Atoi(string(raw)); err == nil {
				v.ErrorCount = n
			}
		}
		out[name] = v
	}
	return out, nil
}

func redisString(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

func (s *Surface) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.cache == nil || s.cache.Ping(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Surface) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
