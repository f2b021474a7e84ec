package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/ledgerboard/internal/domain/types"
)

// handleTopScores handles GET /v1/scores/top?count=N.
func (s *Server) handleTopScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.top_scores"
	n, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil {
		s.writeError(w, r, badRequest(op, fmt.Errorf("count: %w", err)))
		return
	}
	// Larger counts are served as the first maxCount rows.
	n = min(n, s.maxCount)
	entries, err := s.deps.TopScores(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.FromEntry(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCount handles GET /v1/scores/count.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.TopScoresCount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	capacity, err := s.deps.Capacity(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Count{Count: n, Capacity: capacity})
}
