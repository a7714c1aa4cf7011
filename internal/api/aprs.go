package api

import (
	"encoding/json"
	"net/http"

	"github.com/kaos-observability/ingest/internal/collectors/aprs"
)

// handleAPRS optionally filters the cached station list by bounding box
// (spec §4.8: "bounded-view feeds (aircraft, APRS)").
func (s *Server) handleAPRS(w http.ResponseWriter, r *http.Request) {
	lamin, haveLamin, err1 := parseFloatParam(r, "lamin")
	lamax, haveLamax, err2 := parseFloatParam(r, "lamax")
	lomin, haveLomin, err3 := parseFloatParam(r, "lomin")
	lomax, haveLomax, err4 := parseFloatParam(r, "lomax")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, http.StatusBadRequest, "invalid bounding box parameter")
		return
	}
	haveBBox := haveLamin && haveLamax && haveLomin && haveLomax

	body, err := s.cache.Get(r.Context(), "kaos:aprs:global")
	if err != nil {
		writeUnavailable(w, "aprs")
		return
	}

	if !haveBBox {
		writeRaw(w, body, "")
		return
	}

	var stations []aprs.Station
	if err := json.Unmarshal(body, &stations); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt cached aprs data")
		return
	}
	filtered := stations[:0]
	for _, st := range stations {
		if st.Lat >= lamin && st.Lat <= lamax && st.Lon >= lomin && st.Lon <= lomax {
			filtered = append(filtered, st)
		}
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRaw(w, out, "")
}
