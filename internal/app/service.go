// Package service hosts client sessions: one per connected player, created
// on connect and discarded on disconnect.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/internal/viewmodel"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

// Service owns the sessions talking to one ledger.
type Service struct {
	mu sync.RWMutex

	client   ledger.Client
	sessions map[uuid.UUID]*Session

	// Configuration
	topCount          int
	pollInterval      time.Duration
	settlementTimeout time.Duration
	refreshTimeout    time.Duration
	notifier          Notifier

	logger logger.Logger
}

// New constructs a Service over client.
func New(client ledger.Client, opts ...Option) *Service {
	s := &Service{
		client:            client,
		sessions:          make(map[uuid.UUID]*Session),
		topCount:          20,
		pollInterval:      time.Second,
		settlementTimeout: 2 * time.Minute,
		notifier:          discard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.client = ledger.Instrument(client, s.logger.Named("ledger"))
	return s
}

// Connect opens a session for player and loads its reads. A failed initial
// read is logged and leaves the slot empty; the session is still usable.
func (s *Service) Connect(ctx context.Context, player model.Player) (*Session, error) {
	const op = "service.connect"
	if player == (model.Player{}) {
		return nil, model.Precondition(op, model.MsgNotConnected)
	}

	id := uuid.New()
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &Session{
		id:       id,
		player:   player,
		client:   s.client,
		notifier: s.notifier,
		logger: s.logger.Named("session").
			With(logger.String("session", id.String()), logger.String("player", player.Hex())),
		pollInterval:      s.pollInterval,
		settlementTimeout: s.settlementTimeout,
		ctx:               sessCtx,
		cancel:            cancel,
	}
	sess.cache = viewmodel.New(s.client, player,
		viewmodel.WithTopCount(s.topCount),
		viewmodel.WithRefreshTimeout(s.refreshTimeout),
		viewmodel.WithLogger(sess.logger),
	)

	s.mu.Lock()
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.UpdateActiveSessions(n)

	if err := sess.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial refresh incomplete", logger.String("session", id.String()), logger.Error(err))
	}
	s.logger.Info(ctx, "session connected",
		logger.String("session", id.String()),
		logger.String("player", player.Hex()),
	)
	return sess, nil
}

// Session looks up a live session.
func (s *Service) Session(id uuid.UUID) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Disconnect discards the session. A pending write is no longer observed.
func (s *Service) Disconnect(ctx context.Context, id uuid.UUID) error {
	const op = "service.disconnect"

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return model.InvalidArgument(op, "unknown session "+id.String())
	}
	metrics.UpdateActiveSessions(n)

	sess.Close()
	s.logger.Info(ctx, "session disconnected", logger.String("session", id.String()))
	return nil
}

// Sessions returns the number of live sessions.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop disconnects every session.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "service stopped", logger.Int("sessions", len(sessions)))
}
