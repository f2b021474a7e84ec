package api

import (
	"net/http"

	"github.com/okian/ledgerboard/internal/domain/types"
)

// handleBest handles GET /v1/players/{player}/best.
func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	p, err := types.ParsePlayer(r.PathValue("player"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	best, err := s.deps.PlayerBestScore(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.BestScore{Player: p.Hex(), BestScore: best})
}

// handleRank handles GET /v1/players/{player}/rank.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	p, err := types.ParsePlayer(r.PathValue("player"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rank, err := s.deps.PlayerRank(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromRank(p, rank))
}
