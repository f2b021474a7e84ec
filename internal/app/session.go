package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/internal/tracker"
	"github.com/okian/ledgerboard/internal/viewmodel"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

// Session is one connected viewer. It validates input, drives at most one
// write at a time and refreshes its reads once per confirmed write.
type Session struct {
	id       uuid.UUID
	player   model.Player
	client   ledger.Client
	cache    *viewmodel.Cache
	notifier Notifier
	logger   logger.Logger

	pollInterval      time.Duration
	settlementTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	form    Form
	current *tracker.Tracker
	closed  bool
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Player returns the connected identity.
func (s *Session) Player() model.Player { return s.player }

// SetForm replaces the raw input. Fresh input after a settled attempt
// resets the transaction to Idle; a write still in flight keeps its state.
func (s *Session) SetForm(score, gameName string) {
	s.mu.Lock()
	s.form = Form{Score: score, GameName: gameName}
	if s.current != nil && s.current.State().Phase.Terminal() {
		s.current = nil
	}
	s.mu.Unlock()
}

// Form returns the raw input. It is cleared after a confirmed write and
// kept after a failed one.
func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// View returns the cached reads.
func (s *Session) View() viewmodel.Snapshot { return s.cache.Snapshot() }

// Refresh re-reads every slot without involving a write.
func (s *Session) Refresh(ctx context.Context) error { return s.cache.RefreshAll(ctx) }

// Transaction returns the state of the latest attempt, Idle when there is
// none.
func (s *Session) Transaction() model.TransactionState {
	s.mu.Lock()
	tr := s.current
	s.mu.Unlock()
	if tr == nil {
		return model.TransactionState{}
	}
	return tr.State()
}

// SubmitValues submits score and gameName as the new input. The values
// replace the form unless a write is still in flight, so a rejected attempt
// never overwrites the input of the unsettled one.
func (s *Session) SubmitValues(ctx context.Context, score, gameName string) (model.Reference, error) {
	return s.submit(ctx, &Form{Score: score, GameName: gameName})
}

// Submit validates the form and issues the write. It returns once the ledger
// accepted the write; settlement is observed in the background and reported
// through the notifier. Every call produces exactly one signal.
func (s *Session) Submit(ctx context.Context) (model.Reference, error) {
	return s.submit(ctx, nil)
}

func (s *Session) submit(ctx context.Context, input *Form) (model.Reference, error) {
	const op = "service.submit"

	s.mu.Lock()
	inFlight := s.current != nil && !s.current.State().Phase.Terminal()
	form := s.form
	if input != nil {
		form = *input
		if !inFlight {
			s.form = form
		}
	}
	req, err := model.ParseSubmission(form.Score, form.GameName)
	if err == nil && (s.closed || s.player == (model.Player{})) {
		err = model.Precondition(op, model.MsgNotConnected)
	}
	if err == nil && inFlight {
		err = model.Precondition(op, model.MsgSubmissionInFlight)
	}
	if err != nil {
		s.mu.Unlock()
		s.emit(ctx, Signal{Outcome: OutcomeFailure, Request: req, Err: err})
		return model.Reference{}, err
	}

	tr := tracker.New(s.client,
		tracker.WithPollInterval(s.pollInterval),
		tracker.WithTimeout(s.settlementTimeout),
		tracker.WithLogger(s.logger.Named("tracker")),
	)
	tr.OnSettled(func(st model.TransactionState) { s.settled(form, req, st) })
	s.current = tr
	s.wg.Add(1)
	s.mu.Unlock()

	ref, err := tr.Submit(ctx, s.player, req)
	if err != nil {
		s.wg.Done()
		return model.Reference{}, err
	}

	go func() {
		defer s.wg.Done()
		if _, err := tr.Await(s.ctx); errors.Is(err, tracker.ErrAbandoned) {
			s.logger.Info(s.ctx, "stopped observing write", logger.String("reference", ref.Hex()))
		}
	}()
	return ref, nil
}

// Wait blocks until the latest attempt settles or ctx ends.
func (s *Session) Wait(ctx context.Context) (model.TransactionState, error) {
	s.mu.Lock()
	tr := s.current
	s.mu.Unlock()
	if tr == nil {
		return model.TransactionState{}, nil
	}
	select {
	case <-tr.Done():
		st := tr.State()
		return st, st.Err
	case <-ctx.Done():
		return tr.State(), ctx.Err()
	}
}

// Close stops observing any pending write and refuses further submissions.
// The write itself may still settle on the ledger.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// settled reports the outcome of the write submitted from form. A confirmed
// write clears the form only if the user has not typed new input since.
func (s *Session) settled(form Form, req model.SubmissionRequest, st model.TransactionState) {
	sig := Signal{Request: req, Reference: st.Reference}
	if st.Phase == model.PhaseConfirmed {
		if err := s.cache.RefreshAll(s.ctx); err != nil {
			s.logger.Warn(s.ctx, "refresh after confirmation incomplete", logger.Error(err))
		}
		s.mu.Lock()
		if s.form == form {
			s.form = Form{}
		}
		s.mu.Unlock()
		sig.Outcome = OutcomeSuccess
	} else {
		sig.Outcome = OutcomeFailure
		sig.Err = st.Err
	}
	s.emit(s.ctx, sig)
}

func (s *Session) emit(ctx context.Context, sig Signal) {
	sig.Session = s.id
	sig.Player = s.player
	sig.Message = model.Message(sig.Err)
	metrics.RecordSubmission(sig.Outcome.String(), model.KindLabel(sig.Err))

	fields := []logger.Field{
		logger.String("session", s.id.String()),
		logger.String("outcome", sig.Outcome.String()),
	}
	if sig.Reference != (model.Reference{}) {
		fields = append(fields, logger.String("reference", sig.Reference.Hex()))
	}
	if sig.Err != nil {
		fields = append(fields, logger.String("message", sig.Message))
	}
	s.logger.Info(ctx, "submission finished", fields...)

	s.notifier.Notify(sig)
}
