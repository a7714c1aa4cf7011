package api

import (
	"encoding/json"
	"net/http"

	"github.com/kaos-observability/ingest/internal/collectors/kiwisdr"
)

func (s *Server) handleKiwisdr(w http.ResponseWriter, r *http.Request) {
	body, err := s.cache.Get(r.Context(), "kaos:kiwisdr:stations")
	if err != nil {
		writeUnavailable(w, "kiwisdr")
		return
	}

	var compact []kiwisdr.Record
	if err := json.Unmarshal(body, &compact); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt cached kiwisdr data")
		return
	}

	full := make([]kiwisdr.Full, 0, len(compact))
	for _, rec := range compact {
		full = append(full, kiwisdr.Expand(rec))
	}

	out, err := json.Marshal(full)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRaw(w, out, "")
}
