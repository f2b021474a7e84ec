package api

import (
	"context"
	"net/http"
)

// StatsProvider reports ledger statistics for GET /stats.
type StatsProvider interface {
	Stats(ctx context.Context) any
}

// StatsFunc adapts a function to StatsProvider.
type StatsFunc func(ctx context.Context) any

func (f StatsFunc) Stats(ctx context.Context) any { return f(ctx) }

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Stats(r.Context()))
}
