package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type featureCollection struct {
	Type     string           `json:"type"`
	Features []map[string]any `json:"features"`
}

// handleSeismic filters the cached seismic GeoJSON by an hours
// cutoff and a minimum magnitude (spec §8 scenario 1). hours selects
// which of the three cached windows (day/week/month) is wide enough to
// cover the request without re-fetching.
func (s *Server) handleSeismic(w http.ResponseWriter, r *http.Request) {
	hoursRaw := r.URL.Query().Get("hours")
	hours := 24
	if hoursRaw != "" {
		v, err := strconv.Atoi(hoursRaw)
		if err != nil || v < 1 || v > 744 {
			writeError(w, http.StatusBadRequest, "hours must be an integer in [1,744]")
			return
		}
		hours = v
	}

	minMag := 0.0
	if raw := r.URL.Query().Get("minMag"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			writeError(w, http.StatusBadRequest, "minMag must be a number in [0,10]")
			return
		}
		minMag = v
	}

	window := "day"
	switch {
	case hours > 168:
		window = "month"
	case hours > 24:
		window = "week"
	}

	body, err := s.cache.Get(r.Context(), "kaos:seismic:"+window)
	if err != nil {
		writeUnavailable(w, "seismic")
		return
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt cached seismic data")
		return
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	filtered := fc.Features[:0]
	for _, feat := range fc.Features {
		props, _ := feat["properties"].(map[string]any)
		mag, _ := props["mag"].(float64)
		ts, _ := props["time"].(float64)
		if mag >= minMag && int64(ts) >= cutoff {
			filtered = append(filtered, feat)
		}
	}
	fc.Features = filtered

	out, err := json.Marshal(fc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRaw(w, out, "")
}
