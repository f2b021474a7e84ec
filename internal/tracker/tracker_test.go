package tracker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/ledgerboard/internal/adapters/chain"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/tracker"
	"github.com/okian/ledgerboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	player = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	ref    = common.HexToHash("0x01")
	req    = model.SubmissionRequest{Score: 42, GameName: "tetris"}
)

// scriptedWriter replays receipts in order and repeats the last one.
type scriptedWriter struct {
	mu        sync.Mutex
	submitErr error
	receipts  []model.Receipt
	errs      []error
	polls     int
}

func (w *scriptedWriter) SubmitScore(context.Context, model.Player, model.SubmissionRequest) (model.Reference, error) {
	if w.submitErr != nil {
		return model.Reference{}, w.submitErr
	}
	return ref, nil
}

func (w *scriptedWriter) Settlement(ctx context.Context, _ model.Reference) (model.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.polls
	w.polls++
	if i < len(w.errs) && w.errs[i] != nil {
		return model.Receipt{}, w.errs[i]
	}
	if len(w.receipts) == 0 {
		return model.Receipt{Reference: ref, Status: model.StatusPending}, nil
	}
	if i >= len(w.receipts) {
		i = len(w.receipts) - 1
	}
	return w.receipts[i], nil
}

func (w *scriptedWriter) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

func pending() model.Receipt   { return model.Receipt{Reference: ref, Status: model.StatusPending} }
func confirmed() model.Receipt { return model.Receipt{Reference: ref, Status: model.StatusConfirmed, Block: 7} }

func newTracker(w *scriptedWriter, opts ...tracker.Option) *tracker.Tracker {
	base := []tracker.Option{
		tracker.WithPollInterval(2 * time.Millisecond),
		tracker.WithLogger(logger.Nop()),
	}
	return tracker.New(w, append(base, opts...)...)
}

func TestTracker_Lifecycle(t *testing.T) {
	Convey("Given a tracker over a ledger that confirms on the third poll", t, func() {
		w := &scriptedWriter{receipts: []model.Receipt{pending(), pending(), confirmed()}}
		var phases []model.Phase
		tr := newTracker(w, tracker.WithTransitionHook(func(_, to model.Phase) { phases = append(phases, to) }))
		var signals int32
		tr.OnSettled(func(model.TransactionState) { atomic.AddInt32(&signals, 1) })

		So(tr.State().Phase, ShouldEqual, model.PhaseIdle)

		Convey("Submit leaves it pending with a reference", func() {
			got, err := tr.Submit(context.Background(), player, req)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, ref)
			So(tr.State().Phase, ShouldEqual, model.PhasePending)
			So(tr.State().HasReference(), ShouldBeTrue)

			Convey("Await confirms it and signals exactly once", func() {
				st, err := tr.Await(context.Background())
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, model.PhaseConfirmed)
				So(st.Receipt.Block, ShouldEqual, 7)
				So(w.Polls(), ShouldEqual, 3)
				So(atomic.LoadInt32(&signals), ShouldEqual, 1)
				So(phases, ShouldResemble, []model.Phase{
					model.PhaseSubmitting, model.PhasePending, model.PhaseConfirmed,
				})

				closed := false
				select {
				case <-tr.Done():
					closed = true
				default:
				}
				So(closed, ShouldBeTrue)

				Convey("Awaiting again returns the terminal state without a second signal", func() {
					st, err := tr.Await(context.Background())
					So(err, ShouldBeNil)
					So(st.Phase, ShouldEqual, model.PhaseConfirmed)
					So(atomic.LoadInt32(&signals), ShouldEqual, 1)
				})

				Convey("A late observer runs immediately", func() {
					var late model.TransactionState
					tr.OnSettled(func(s model.TransactionState) { late = s })
					So(late.Phase, ShouldEqual, model.PhaseConfirmed)
				})
			})

			Convey("A second Submit is rejected", func() {
				_, err := tr.Submit(context.Background(), player, req)
				So(errors.Is(err, model.ErrPrecondition), ShouldBeTrue)
				So(model.Message(err), ShouldEqual, model.MsgSubmissionInFlight)
			})
		})

		Convey("Await before Submit is a precondition failure", func() {
			_, err := tr.Await(context.Background())
			So(errors.Is(err, model.ErrPrecondition), ShouldBeTrue)
			So(tr.State().Phase, ShouldEqual, model.PhaseIdle)
		})
	})
}

func TestTracker_Failures(t *testing.T) {
	Convey("Given trackers over misbehaving ledgers", t, func() {
		ctx := context.Background()

		Convey("A rejected write fails synchronously with no reference", func() {
			w := &scriptedWriter{submitErr: model.Unavailable("test", errors.New("connection refused"))}
			tr := newTracker(w)
			var got model.TransactionState
			tr.OnSettled(func(s model.TransactionState) { got = s })

			_, err := tr.Submit(ctx, player, req)
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
			So(got.Phase, ShouldEqual, model.PhaseFailed)
			So(got.HasReference(), ShouldBeFalse)
			So(errors.Is(got.Err, model.ErrUnavailable), ShouldBeTrue)
		})

		Convey("A reverted receipt fails with the ledger's reason", func() {
			w := &scriptedWriter{receipts: []model.Receipt{
				{Reference: ref, Status: model.StatusFailed, Reason: "game name too long"},
			}}
			tr := newTracker(w)
			_, err := tr.Submit(ctx, player, req)
			So(err, ShouldBeNil)

			st, err := tr.Await(ctx)
			So(errors.Is(err, model.ErrSettlement), ShouldBeTrue)
			So(st.Phase, ShouldEqual, model.PhaseFailed)
			So(model.Message(st.Err), ShouldEqual, "game name too long")
			So(st.HasReference(), ShouldBeTrue)
		})

		Convey("Transient poll errors are retried", func() {
			w := &scriptedWriter{
				receipts: []model.Receipt{pending(), pending(), pending(), confirmed()},
				errs: []error{
					model.WrapKind("test", model.ErrUnknownReference, errors.New("not indexed")),
					model.Unavailable("test", errors.New("reset by peer")),
				},
			}
			tr := newTracker(w)
			_, err := tr.Submit(ctx, player, req)
			So(err, ShouldBeNil)

			st, err := tr.Await(ctx)
			So(err, ShouldBeNil)
			So(st.Phase, ShouldEqual, model.PhaseConfirmed)
		})

		Convey("A lookup error that cannot resolve fails without waiting for the timeout", func() {
			w := &scriptedWriter{
				receipts: []model.Receipt{confirmed()},
				errs:     []error{model.InvalidArgument("test", "malformed reference")},
			}
			tr := newTracker(w, tracker.WithTimeout(time.Minute))
			var signals int32
			tr.OnSettled(func(model.TransactionState) { atomic.AddInt32(&signals, 1) })
			_, err := tr.Submit(ctx, player, req)
			So(err, ShouldBeNil)

			start := time.Now()
			st, err := tr.Await(ctx)
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(err, model.ErrTimeout), ShouldBeFalse)
			So(st.Phase, ShouldEqual, model.PhaseFailed)
			So(w.Polls(), ShouldEqual, 1)
			So(time.Since(start), ShouldBeLessThan, time.Second)
			So(atomic.LoadInt32(&signals), ShouldEqual, 1)
		})

		Convey("A reference that never settles times out", func() {
			w := &scriptedWriter{}
			tr := newTracker(w, tracker.WithTimeout(30*time.Millisecond))
			var signals int32
			tr.OnSettled(func(model.TransactionState) { atomic.AddInt32(&signals, 1) })
			_, err := tr.Submit(ctx, player, req)
			So(err, ShouldBeNil)

			st, err := tr.Await(ctx)
			So(errors.Is(err, model.ErrTimeout), ShouldBeTrue)
			So(st.Phase, ShouldEqual, model.PhaseFailed)
			So(atomic.LoadInt32(&signals), ShouldEqual, 1)
			So(w.Polls(), ShouldBeGreaterThan, 1)
		})
	})
}

func TestTracker_Abandon(t *testing.T) {
	Convey("Given a pending tracker", t, func() {
		w := &scriptedWriter{}
		tr := newTracker(w)
		var signals int32
		tr.OnSettled(func(model.TransactionState) { atomic.AddInt32(&signals, 1) })
		_, err := tr.Submit(context.Background(), player, req)
		So(err, ShouldBeNil)

		Convey("Cancelling the observer abandons without a signal", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			st, err := tr.Await(ctx)
			So(errors.Is(err, tracker.ErrAbandoned), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(st.Phase, ShouldEqual, model.PhasePending)
			So(atomic.LoadInt32(&signals), ShouldEqual, 0)

			Convey("and observation can resume later", func() {
				w.mu.Lock()
				w.receipts = []model.Receipt{confirmed()}
				w.polls = 0
				w.mu.Unlock()

				st, err := tr.Await(context.Background())
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, model.PhaseConfirmed)
				So(atomic.LoadInt32(&signals), ShouldEqual, 1)
			})
		})
	})
}

func TestTracker_AgainstNode(t *testing.T) {
	n, err := chain.NewNode(chain.WithBlockTime(0, 0), chain.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	n.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = n.Stop(ctx)
	}()

	tr := tracker.New(n, tracker.WithPollInterval(time.Millisecond), tracker.WithLogger(logger.Nop()))
	if _, err := tr.Submit(context.Background(), player, req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := tr.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if st.Phase != model.PhaseConfirmed {
		t.Fatalf("phase = %s, want confirmed", st.Phase)
	}
	best, err := n.PlayerBestScore(context.Background(), player)
	if err != nil || best != 42 {
		t.Fatalf("best = %d, %v; want 42", best, err)
	}
}
