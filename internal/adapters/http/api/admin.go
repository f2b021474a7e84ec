package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/pkg/logger"
)

// handleReset handles POST /v1/admin/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	var req types.ResetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, badRequest(op, err))
		return
	}
	caller, err := types.ParsePlayer(req.Caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Reset(r.Context(), caller); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "table reset", logger.String("caller", caller.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
