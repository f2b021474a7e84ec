package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/pkg/logger"
)

const maxBodyBytes = 1 << 16

// handleSubmit handles POST /v1/transactions. It answers 202 once the write
// is queued; settlement is read from the reference route.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	var req types.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, badRequest(op, err))
		return
	}
	var from model.Player
	if req.From != "" {
		p, err := types.ParsePlayer(req.From)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		from = p
	}
	ref, err := s.deps.SubmitScore(r.Context(), from, model.SubmissionRequest{Score: req.Score, GameName: req.GameName})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug(r.Context(), "write accepted",
		logger.String("reference", ref.Hex()),
		logger.String("request_id", w.Header().Get(requestIDHeader)))
	writeJSON(w, http.StatusAccepted, types.SubmitResponse{Reference: ref.Hex(), Status: model.StatusPending.String()})
}

// handleSettlement handles GET /v1/transactions/{reference}.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	ref, err := types.ParseReference(r.PathValue("reference"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rcpt, err := s.deps.Settlement(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromReceipt(rcpt))
}
