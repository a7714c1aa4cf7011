// Package api implements the read-side HTTP handlers (spec §4.8, §6):
// parse and validate query parameters, read the owning collector's
// cache key, filter/expand as needed, and for per-user-parameterized
// data use the cache-aside primitive. Routing and middleware follow
// the teacher's chi-based server (internal/core/server in the prior
// tree).
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/fetcher"
	"github.com/kaos-observability/ingest/internal/middleware"
)

type Server struct {
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger

	openWeatherKey string
}

func NewServer(c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger, openWeatherKey string) *Server {
	return &Server{cache: c, fetcher: f, log: log, openWeatherKey: openWeatherKey}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(&s.log))
	r.Use(middleware.Logging(&s.log))
	r.Use(middleware.CORS())

	r.Get("/api/aircraft", s.handleAircraft)
	r.Get("/api/aprs", s.handleAPRS)
	r.Get("/api/kiwisdr", s.handleKiwisdr)
	r.Get("/api/seismic", s.handleSeismic)
	r.Get("/api/lightning", s.passthrough("kaos:lightning:global"))
	r.Get("/api/space-weather", s.passthrough("kaos:space-weather:current"))
	r.Get("/api/tec", s.passthrough("kaos:tec:global"))
	r.Get("/api/aurora", s.passthrough("kaos:aurora:latest"))
	r.Get("/api/fires/{source}/{days}", s.handleFires)
	r.Get("/api/gfs/{layer}", s.handleGFS)
	r.Get("/api/ocean-currents", s.passthrough("kaos:ocean-currents:global"))
	r.Get("/api/waves", s.passthrough("kaos:waves:global"))
	r.Get("/api/sst", s.passthrough("kaos:sst:global"))
	r.Get("/api/air-quality", s.passthrough("kaos:air-quality:global"))
	r.Get("/api/warnings", s.passthrough("kaos:warnings:ipma"))
	r.Get("/api/prociv", s.passthrough("kaos:prociv:ocorrencias"))
	r.Get("/api/gdacs", s.handleGDACS)
	r.Get("/api/weather/current", s.handleWeatherCurrent)
	r.Get("/api/weather/tiles/{layer}/{z}/{x}/{y}", s.handleWeatherTile)

	return r
}

const noWorkerMessage = " data unavailable - worker may not be running"

func writeUnavailable(w http.ResponseWriter, label string) {
	writeError(w, http.StatusServiceUnavailable, label+noWorkerMessage)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

func writeRaw(w http.ResponseWriter, body []byte, source string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if source != "" {
		w.Header().Set("X-Data-Source", source)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// passthrough serves a worker-owned key verbatim: absent means 503,
// present means write the bytes through unchanged.
func (s *Server) passthrough(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.cache.Get(r.Context(), key)
		if err != nil {
			writeUnavailable(w, key)
			return
		}
		writeRaw(w, body, "")
	}
}

func parseFloatParam(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}
