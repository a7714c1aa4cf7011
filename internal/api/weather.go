package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kaos-observability/ingest/internal/cacheaside"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const (
	weatherCurrentTTL  = 5 * time.Minute
	weatherTileTTL     = 10 * time.Minute
	openWeatherBase    = "https://api.openweathermap.org/data/2.5/weather"
	openWeatherTileURL = "https://tile.openweathermap.org/map"
)

var validTileLayers = map[string]bool{
	"clouds_new": true, "precipitation_new": true, "pressure_new": true,
	"wind_new": true, "temp_new": true,
}

// roundCoord snaps a coordinate to ~0.1 degrees (~11km at the equator)
// so nearby requests share a cache-aside key (spec §4.8).
func roundCoord(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *Server) handleWeatherCurrent(w http.ResponseWriter, r *http.Request) {
	lat, haveLat, err1 := parseFloatParam(r, "lat")
	lon, haveLon, err2 := parseFloatParam(r, "lon")
	if err1 != nil || err2 != nil || !haveLat || !haveLon {
		writeError(w, http.StatusBadRequest, "lat and lon are required numeric query parameters")
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lat/lon out of range")
		return
	}

	latR, lonR := roundCoord(lat), roundCoord(lon)
	key := fmt.Sprintf("kaos:weather:current:%.1f:%.1f", latR, lonR)

	result, err := cacheaside.Get(r.Context(), s.cache, s.log, key, weatherCurrentTTL, func(ctx context.Context) ([]byte, error) {
		url := fmt.Sprintf("%s?lat=%.4f&lon=%.4f&appid=%s&units=metric", openWeatherBase, latR, lonR, s.openWeatherKey)
		return common.GetRaw(ctx, s.fetcher, url, nil, 10000)
	})
	if err != nil {
		writeError(w, fetcher.StatusFor(err), "failed to fetch current weather")
		return
	}
	writeRaw(w, result.Data, string(result.Source))
}

func (s *Server) handleWeatherTile(w http.ResponseWriter, r *http.Request) {
	layer := chi.URLParam(r, "layer")
	if !validTileLayers[layer] {
		writeError(w, http.StatusBadRequest, "unknown weather tile layer")
		return
	}
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil || z < 0 || x < 0 || y < 0 {
		writeError(w, http.StatusBadRequest, "z, x, y must be non-negative integers")
		return
	}

	key := fmt.Sprintf("kaos:weather:tiles:%s:%d:%d:%d", layer, z, x, y)

	result, err := cacheaside.Get(r.Context(), s.cache, s.log, key, weatherTileTTL, func(ctx context.Context) ([]byte, error) {
		url := fmt.Sprintf("%s/%s/%d/%d/%d.png?appid=%s", openWeatherTileURL, layer, z, x, y, s.openWeatherKey)
		return common.GetRaw(ctx, s.fetcher, url, nil, 10000)
	})
	if err != nil {
		writeError(w, fetcher.StatusFor(err), "failed to fetch weather tile")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Data-Source", string(result.Source))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
