package worker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

const (
	defaultMinDelay    = 500 * time.Millisecond
	defaultMaxDelay    = 2 * time.Second
	defaultMaxBlockTxs = 256
)

// Block is a batch of transactions settled together. All of them share the
// block's number and timestamp and are applied in slice order.
type Block struct {
	Number    uint64
	Timestamp uint64 // unix seconds, non-decreasing across blocks
	Txs       []model.Transaction
}

// Executor applies a block to ledger state.
type Executor interface {
	ApplyBlock(ctx context.Context, b Block) error
}

// Queue defines how the worker receives transactions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Transaction
}

// Worker produces blocks until stopped.
type Worker interface {
	// Run starts the block loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the loop. Transactions already taken or queued are
	// settled in a final block without waiting out the block time.
	Shutdown(ctx context.Context) error

	// Height returns the number of the last produced block.
	Height() uint64
}

// BlockWorker is the single sequential block producer. One producer keeps
// the acceptance order of the mempool intact through settlement.
type BlockWorker struct {
	queue    Queue
	executor Executor
	name     string
	logger   logger.Logger

	minDelay    time.Duration
	maxDelay    time.Duration
	maxBlockTxs int
	now         func() time.Time
	rng         *rand.Rand

	height   atomic.Uint64
	lastTime uint64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// New creates a block worker.
func New(q Queue, exec Executor, opts ...Option) *BlockWorker {
	w := &BlockWorker{
		queue:       q,
		executor:    exec,
		name:        "block-worker",
		minDelay:    defaultMinDelay,
		maxDelay:    defaultMaxDelay,
		maxBlockTxs: defaultMaxBlockTxs,
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

var _ Worker = (*BlockWorker)(nil)

// Run starts the block loop.
func (w *BlockWorker) Run(ctx context.Context) {
	defer close(w.done)

	txs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx, txs)
			return
		case <-w.shutdown:
			w.drain(ctx, txs)
			return
		case first, ok := <-txs:
			if !ok {
				return
			}
			if !w.wait(ctx) {
				w.flush(ctx, first, txs)
				return
			}
			batch, open := w.collect(first, txs)
			w.produce(ctx, batch)
			if !open {
				return
			}
		}
	}
}

// wait sleeps for the simulated inclusion delay.
func (w *BlockWorker) wait(ctx context.Context) bool {
	d := w.minDelay
	if span := w.maxDelay - w.minDelay; span > 0 {
		d += time.Duration(w.rng.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.shutdown:
		return false
	}
}

// drain settles whatever is still queued when the loop stops.
func (w *BlockWorker) drain(ctx context.Context, txs <-chan model.Transaction) {
	select {
	case first, ok := <-txs:
		if ok {
			w.flush(ctx, first, txs)
		}
	default:
	}
}

// flush produces blocks from first and everything already waiting behind
// it. The loop is stopping, so ctx may be canceled; blocks are applied
// regardless so that no accepted transaction is left pending.
func (w *BlockWorker) flush(ctx context.Context, first model.Transaction, txs <-chan model.Transaction) { //nolint:gocritic // value from channel
	ctx = context.WithoutCancel(ctx)
	for {
		batch, open := w.collect(first, txs)
		w.produce(ctx, batch)
		if !open {
			return
		}
		select {
		case tx, ok := <-txs:
			if !ok {
				return
			}
			first = tx
		default:
			return
		}
	}
}

// collect takes whatever else is already waiting, up to the block limit.
func (w *BlockWorker) collect(first model.Transaction, txs <-chan model.Transaction) ([]model.Transaction, bool) { //nolint:gocritic // value from channel
	batch := []model.Transaction{first}
	for len(batch) < w.maxBlockTxs {
		select {
		case tx, ok := <-txs:
			if !ok {
				return batch, false
			}
			batch = append(batch, tx)
		default:
			return batch, true
		}
	}
	return batch, true
}

func (w *BlockWorker) produce(ctx context.Context, txs []model.Transaction) {
	ts := uint64(w.now().Unix())
	if ts < w.lastTime {
		ts = w.lastTime
	}
	w.lastTime = ts
	b := Block{Number: w.height.Load() + 1, Timestamp: ts, Txs: txs}

	if err := w.executor.ApplyBlock(ctx, b); err != nil {
		w.logger.Error(ctx, "block execution failed",
			logger.Uint64("block", b.Number), logger.Int("txs", len(txs)), logger.Error(err))
		return
	}
	w.height.Store(b.Number)

	metrics.RecordBlock()
	for _, tx := range txs {
		if !tx.AcceptedAt.IsZero() {
			metrics.RecordBlockLatency(float64(time.Since(tx.AcceptedAt).Milliseconds()))
		}
	}
	w.logger.Debug(ctx, "block produced",
		logger.Uint64("block", b.Number), logger.Int("txs", len(txs)), logger.Uint64("timestamp", ts))
}

// Height returns the number of the last produced block.
func (w *BlockWorker) Height() uint64 {
	return w.height.Load()
}

// Shutdown stops the loop and waits for it, up to ctx. It is safe to call
// more than once and from several goroutines.
func (w *BlockWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *BlockWorker) Done() <-chan struct{} { return w.done }
