package bridgeapi

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) registerLaunchRoutes() {
	s.mux.HandleFunc("/launches", s.handleLaunches)
}

func (s *Server) handleLaunches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handleNotFound(w, r)
		return
	}
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "launch journal is unavailable"})
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	rows, err := s.deps.Journal.List(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"launches": rows})
}
