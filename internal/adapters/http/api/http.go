// Package api is the HTTP gateway in front of a ledger: the read, write and
// settlement surface plus admin, stats and metrics routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
)

const defaultMaxCount = 100

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ledger.Client
	ledger.Admin
}

// Server wires HTTP routes for the ledger API.
type Server struct {
	deps     Dependencies
	stats    StatsProvider
	maxCount int
	logger   logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxCount caps the rows served by the top table route. Larger counts
// are clamped.
func WithMaxCount(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates the API server. stats may be nil.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{deps: deps, stats: stats, maxCount: defaultMaxCount}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("GET /healthz", "healthz", s.handleHealth)
	route("GET /stats", "stats", s.handleStats)
	route("GET /v1/scores/top", "top_scores", s.handleTopScores)
	route("GET /v1/scores/count", "score_count", s.handleCount)
	route("GET /v1/players/{player}/best", "player_best", s.handleBest)
	route("GET /v1/players/{player}/rank", "player_rank", s.handleRank)
	route("POST /v1/transactions", "submit", s.handleSubmit)
	route("GET /v1/transactions/{reference}", "settlement", s.handleSettlement)
	route("POST /v1/admin/reset", "reset", s.handleReset)

	s.logger.Debug(ctx, "routes registered", logger.Int("max_count", s.maxCount))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", w.Header().Get(requestIDHeader)),
			logger.Error(err))
	}
	writeJSON(w, status, types.ErrorOf(err))
}
