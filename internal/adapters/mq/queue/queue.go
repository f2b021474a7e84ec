// Package queue holds the ledger node's mempool: accepted transactions
// waiting to be included in a block, in acceptance order.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/pkg/metrics"
)

const defaultCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue appends tx. It never blocks: a full or closed mempool is
	// reported as ErrFull or ErrClosed.
	Enqueue(ctx context.Context, tx model.Transaction) error

	// Dequeue returns a channel delivering transactions in acceptance order.
	// It is closed once the mempool is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Transaction

	// Len returns the number of queued transactions.
	Len(ctx context.Context) int

	// Close stops accepting transactions.
	Close() error

	IsClosed() bool
}

// Mempool implements Queue with a buffered channel.
type Mempool struct {
	txs      chan model.Transaction
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// New creates a mempool.
func New(opts ...Option) *Mempool {
	q := &Mempool{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.txs = make(chan model.Transaction, q.capacity)

	metrics.UpdateMempoolCapacity(q.capacity)
	metrics.UpdateMempoolSize(0)
	return q
}

var _ Queue = (*Mempool)(nil)

// Enqueue adds tx to the mempool.
func (q *Mempool) Enqueue(ctx context.Context, tx model.Transaction) error { //nolint:gocritic // passed by value into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordMempoolRejected()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordMempoolRejected()
		return err
	}

	select {
	case q.txs <- tx:
		metrics.RecordMempoolEnqueue()
		metrics.UpdateMempoolSize(len(q.txs))
		return nil
	default:
		metrics.RecordMempoolRejected()
		return ErrFull
	}
}

// Dequeue returns the mempool channel itself, so a consumer can take what
// is already waiting without blocking. Only one consumer should range over
// it to keep acceptance order.
func (q *Mempool) Dequeue(_ context.Context) <-chan model.Transaction {
	return q.txs
}

// Len returns the number of queued transactions.
func (q *Mempool) Len(_ context.Context) int {
	size := len(q.txs)
	metrics.UpdateMempoolSize(size)
	return size
}

// Close stops accepting transactions. Queued ones are still delivered.
func (q *Mempool) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.txs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *Mempool) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
