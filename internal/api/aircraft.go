package api

import (
	"encoding/json"
	"net/http"

	"github.com/kaos-observability/ingest/internal/collectors/aircraft"
)

// handleAircraft filters the cached compact record list by bounding
// box before expanding to the public shape. Decided (spec §9 open
// question b): compact-first is strictly better than expand-then-
// filter since it avoids expanding records the bbox will discard.
func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	lamin, haveLamin, err := parseFloatParam(r, "lamin")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lamin")
		return
	}
	lamax, haveLamax, err := parseFloatParam(r, "lamax")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lamax")
		return
	}
	lomin, haveLomin, err := parseFloatParam(r, "lomin")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lomin")
		return
	}
	lomax, haveLomax, err := parseFloatParam(r, "lomax")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lomax")
		return
	}
	haveBBox := haveLamin && haveLamax && haveLomin && haveLomax
	if (haveLamin || haveLamax || haveLomin || haveLomax) && !haveBBox {
		writeError(w, http.StatusBadRequest, "lamin, lamax, lomin, lomax must all be supplied together")
		return
	}
	if haveBBox && (lamin > lamax || lomin > lomax) {
		writeError(w, http.StatusBadRequest, "bounding box min must not exceed max")
		return
	}

	body, err := s.cache.Get(r.Context(), "kaos:aircraft:global")
	if err != nil {
		writeUnavailable(w, "aircraft")
		return
	}

	var compact []aircraft.Record
	if err := json.Unmarshal(body, &compact); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt cached aircraft data")
		return
	}

	if haveBBox {
		filtered := compact[:0]
		for _, rec := range compact {
			if rec.Lat >= lamin && rec.Lat <= lamax && rec.Lon >= lomin && rec.Lon <= lomax {
				filtered = append(filtered, rec)
			}
		}
		compact = filtered
	}

	full := make([]aircraft.Full, 0, len(compact))
	for _, rec := range compact {
		full = append(full, aircraft.Expand(rec))
	}

	out, err := json.Marshal(full)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRaw(w, out, "")
}
