// Package tracker owns the lifecycle of one score write:
// Idle -> Submitting -> Pending -> Confirmed | Failed.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

const (
	defaultPollInterval = time.Second
	defaultTimeout      = 2 * time.Minute
)

// Tracker follows a single submission attempt. A new attempt needs a new
// Tracker; Submit may only be called once.
type Tracker struct {
	writer  ledger.Writer
	poll    time.Duration
	timeout time.Duration
	logger  logger.Logger
	hook    func(from, to model.Phase)

	mu           sync.Mutex
	state        model.TransactionState
	pendingSince time.Time
	observers    []func(model.TransactionState)
	settled      bool
	done         chan struct{}
}

// New returns an Idle tracker.
func New(w ledger.Writer, opts ...Option) *Tracker {
	t := &Tracker{
		writer:  w,
		poll:    defaultPollInterval,
		timeout: defaultTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("tracker")
	}
	return t
}

// State returns a snapshot of the attempt.
func (t *Tracker) State() model.TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed after the attempt reached a terminal phase and every
// OnSettled observer returned.
func (t *Tracker) Done() <-chan struct{} { return t.done }

// OnSettled registers fn to run once when the attempt reaches Confirmed or
// Failed. Observers run in registration order on the goroutine that made
// the transition. Registering after settlement runs fn immediately.
func (t *Tracker) OnSettled(fn func(model.TransactionState)) {
	t.mu.Lock()
	if !t.settled {
		t.observers = append(t.observers, fn)
		t.mu.Unlock()
		return
	}
	st := t.state
	t.mu.Unlock()
	fn(st)
}

// Submit issues the write. It returns once the ledger accepted it, with the
// tracker in Pending, or with the synchronous failure and the tracker in
// Failed.
func (t *Tracker) Submit(ctx context.Context, from model.Player, req model.SubmissionRequest) (model.Reference, error) {
	const op = "tracker.submit"

	t.mu.Lock()
	if t.state.Phase != model.PhaseIdle {
		t.mu.Unlock()
		return model.Reference{}, model.Precondition(op, model.MsgSubmissionInFlight)
	}
	t.state.Phase = model.PhaseSubmitting
	t.mu.Unlock()
	t.record(model.PhaseIdle, model.PhaseSubmitting)

	ref, err := t.writer.SubmitScore(ctx, from, req)
	if err != nil {
		t.fail(err)
		return model.Reference{}, err
	}

	t.transition(model.PhasePending, func(s *model.TransactionState) { s.Reference = ref })
	t.logger.Debug(ctx, "write accepted", logger.String("reference", ref.Hex()))
	return ref, nil
}

// Await observes the pending reference until it settles or the settlement
// timeout elapses. A lookup error that is not retryable fails it at once.
// When ctx ends first the tracker stays Pending and ErrAbandoned is
// returned; Await may be called again.
func (t *Tracker) Await(ctx context.Context) (model.TransactionState, error) {
	const op = "tracker.await"

	t.mu.Lock()
	st, since := t.state, t.pendingSince
	t.mu.Unlock()
	switch {
	case st.Phase.Terminal():
		return st, st.Err
	case st.Phase != model.PhasePending:
		return st, model.Precondition(op, "nothing to await in phase "+st.Phase.String())
	}

	deadlineCtx, cancel := context.WithDeadline(ctx, since.Add(t.timeout))
	defer cancel()

	var rcpt model.Receipt
	err := retry.Do(
		func() error {
			metrics.RecordSettlementPoll()
			r, err := t.writer.Settlement(deadlineCtx, st.Reference)
			if err != nil {
				return err
			}
			if r.Status == model.StatusPending {
				return errPending
			}
			rcpt = r
			return nil
		},
		retry.Context(deadlineCtx),
		retry.RetryIf(retryable),
		retry.Attempts(0),
		retry.Delay(t.poll),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if !errors.Is(err, errPending) {
				t.logger.Debug(ctx, "settlement not observable yet",
					logger.String("reference", st.Reference.Hex()),
					logger.Int("attempt", int(n)),
					logger.Error(err))
			}
		}),
	)

	switch {
	case err == nil && rcpt.Status == model.StatusConfirmed:
		t.settle(model.PhaseConfirmed, func(s *model.TransactionState) { s.Receipt = rcpt })
	case err == nil:
		t.settle(model.PhaseFailed, func(s *model.TransactionState) {
			s.Receipt = rcpt
			s.Err = model.SettlementFailure(op, rcpt.Reason)
		})
	case ctx.Err() != nil:
		t.logger.Info(ctx, "tracking abandoned", logger.String("reference", st.Reference.Hex()))
		return t.State(), fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	case deadlineCtx.Err() != nil:
		t.settle(model.PhaseFailed, func(s *model.TransactionState) {
			s.Err = model.Timeout(op, err)
		})
	default:
		t.logger.Warn(ctx, "settlement lookup failed", logger.String("reference", st.Reference.Hex()), logger.Error(err))
		t.fail(err)
	}
	st = t.State()
	return st, st.Err
}

func (t *Tracker) fail(err error) {
	t.settle(model.PhaseFailed, func(s *model.TransactionState) { s.Err = err })
}

// transition moves to a non-terminal phase.
func (t *Tracker) transition(to model.Phase, mutate func(*model.TransactionState)) {
	t.mu.Lock()
	from := t.state.Phase
	t.state.Phase = to
	mutate(&t.state)
	if to == model.PhasePending {
		t.pendingSince = time.Now()
	}
	t.mu.Unlock()
	t.record(from, to)
}

// settle moves to a terminal phase at most once and runs the observers.
func (t *Tracker) settle(to model.Phase, mutate func(*model.TransactionState)) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	from := t.state.Phase
	t.state.Phase = to
	mutate(&t.state)
	t.settled = true
	st, observers, since := t.state, t.observers, t.pendingSince
	t.observers = nil
	t.mu.Unlock()

	t.record(from, to)
	if from == model.PhasePending {
		metrics.RecordSettlementLatency(float64(time.Since(since).Milliseconds()))
	}
	for _, fn := range observers {
		fn(st)
	}
	close(t.done)
}

func (t *Tracker) record(from, to model.Phase) {
	metrics.RecordTrackerTransition(from.String(), to.String())
	if t.hook != nil {
		t.hook(from, to)
	}
}
