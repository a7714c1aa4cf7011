package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var validGFSLayers = map[string]bool{
	"temperature": true, "humidity": true, "precipitation": true,
	"cloud-cover": true, "cape": true, "fire-weather": true,
	"uv-index": true, "wind": true,
}

func (s *Server) handleGFS(w http.ResponseWriter, r *http.Request) {
	layer := chi.URLParam(r, "layer")
	if !validGFSLayers[layer] {
		writeError(w, http.StatusBadRequest, "unknown gfs layer")
		return
	}
	body, err := s.cache.Get(r.Context(), "kaos:gfs:"+layer)
	if err != nil {
		writeUnavailable(w, "gfs:"+layer)
		return
	}
	writeRaw(w, body, "")
}

func (s *Server) handleFires(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	daysRaw := chi.URLParam(r, "days")
	days, err := strconv.Atoi(daysRaw)
	if err != nil || days <= 0 {
		writeError(w, http.StatusBadRequest, "invalid days")
		return
	}
	key := fmt.Sprintf("kaos:fires:%s:%d", source, days)
	body, err := s.cache.Get(r.Context(), key)
	if err != nil {
		writeUnavailable(w, "fires")
		return
	}
	writeRaw(w, body, "")
}

func (s *Server) handleGDACS(w http.ResponseWriter, r *http.Request) {
	body, err := s.cache.Get(r.Context(), "kaos:gdacs:events")
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "GDACS data unavailable - worker may not be running")
		return
	}
	writeRaw(w, body, "")
}
