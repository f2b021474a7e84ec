// Package chain is an in-process ledger node. It accepts score writes into a
// mempool, settles them in blocks and serves the table reads, with the same
// asynchronous accept-then-settle behaviour a remote ledger has.
package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/okian/ledgerboard/internal/adapters/mq/queue"
	"github.com/okian/ledgerboard/internal/adapters/mq/worker"
	"github.com/okian/ledgerboard/internal/adapters/repository"
	"github.com/okian/ledgerboard/internal/domain/dedupe"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

const (
	defaultCapacity    = 100
	defaultMempoolSize = 10_000
	defaultMaxNameLen  = 64
	defaultRetention   = 100_000
)

// Stats is a point-in-time view of the node.
type Stats struct {
	Height    uint64 `json:"height"`
	Mempool   int    `json:"mempool"`
	Pending   int    `json:"pending"`
	TableSize int    `json:"table_size"`
	Capacity  int    `json:"capacity"`
	Players   int    `json:"players"`
}

// Node is the simulated ledger.
type Node struct {
	capacity    int
	mempoolSize int
	blockMin    time.Duration
	blockMax    time.Duration
	maxNameLen  int
	retention   int
	ownerHex    string
	owner       model.Player
	now         func() time.Time
	logger      logger.Logger

	store  *repository.TreapStore
	pool   *queue.Mempool
	worker *worker.BlockWorker
	seen   dedupe.Deduper

	mu       sync.Mutex
	nonce    uint64
	receipts map[model.Reference]model.Receipt
	pending  int
	settled  []model.Reference

	subMu   sync.RWMutex
	subs    map[int]func(model.Event)
	nextSub int

	started  atomic.Bool
	stopOnce sync.Once
}

var (
	_ ledger.Client   = (*Node)(nil)
	_ ledger.Admin    = (*Node)(nil)
	_ worker.Executor = (*Node)(nil)
)

// NewNode builds a node. Call Start to begin producing blocks.
func NewNode(opts ...Option) (*Node, error) {
	n := &Node{
		capacity:    defaultCapacity,
		mempoolSize: defaultMempoolSize,
		blockMin:    500 * time.Millisecond,
		blockMax:    2 * time.Second,
		maxNameLen:  defaultMaxNameLen,
		retention:   defaultRetention,
		now:         time.Now,
		receipts:    make(map[model.Reference]model.Receipt),
		subs:        make(map[int]func(model.Event)),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("chain")
	}
	if n.ownerHex != "" {
		if !common.IsHexAddress(n.ownerHex) {
			return nil, fmt.Errorf("chain: owner %q is not a hex address", n.ownerHex)
		}
		n.owner = common.HexToAddress(n.ownerHex)
	}

	n.store = repository.NewTreapStore(repository.WithCapacity(n.capacity))
	n.pool = queue.New(queue.WithCapacity(n.mempoolSize))
	n.seen = dedupe.New(dedupe.WithMaxSize(n.retention))
	n.worker = worker.New(n.pool, n,
		worker.WithName("block-worker"),
		worker.WithLogger(n.logger.Named("block-worker")),
		worker.WithBlockTime(n.blockMin, n.blockMax),
		worker.WithClock(n.now),
	)
	return n, nil
}

// Start launches block production. It is safe to call more than once.
func (n *Node) Start(ctx context.Context) {
	if n.started.CompareAndSwap(false, true) {
		go n.worker.Run(ctx)
		n.logger.Info(ctx, "ledger node started",
			logger.Int("capacity", n.capacity),
			logger.Int("mempool_size", n.mempoolSize),
			logger.Duration("block_min", n.blockMin),
			logger.Duration("block_max", n.blockMax))
	}
}

// Stop refuses new writes and waits for queued ones to settle, up to ctx.
func (n *Node) Stop(ctx context.Context) error {
	var err error
	n.stopOnce.Do(func() {
		_ = n.pool.Close()
		if !n.started.Load() {
			return
		}
		select {
		case <-n.worker.Done():
		case <-ctx.Done():
			err = n.worker.Shutdown(context.WithoutCancel(ctx))
			if err == nil {
				err = ctx.Err()
			}
		}
		n.logger.Info(ctx, "ledger node stopped", logger.Uint64("height", n.worker.Height()))
	})
	return err
}

func txHash(from model.Player, nonce uint64, req model.SubmissionRequest) model.Reference {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], req.Score)
	return crypto.Keccak256Hash(from.Bytes(), buf[:], []byte(req.GameName))
}

// SubmitScore validates and queues a write. The returned reference settles
// when a block including it is applied.
func (n *Node) SubmitScore(ctx context.Context, from model.Player, req model.SubmissionRequest) (model.Reference, error) {
	const op = "chain.submit_score"
	if err := ledger.CheckSubmission(op, from, req); err != nil {
		return model.Reference{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	nonce := n.nonce + 1
	ref := txHash(from, nonce, req)
	if n.seen.SeenAndRecord(ref) {
		metrics.RecordDuplicateTransaction()
		return model.Reference{}, model.InvalidArgument(op, MsgDuplicate)
	}
	tx := model.Transaction{
		Reference:  ref,
		From:       from,
		Score:      req.Score,
		GameName:   req.GameName,
		Nonce:      nonce,
		AcceptedAt: n.now(),
	}
	// Enqueue under the lock so mempool order matches nonce order.
	if err := n.pool.Enqueue(ctx, tx); err != nil {
		n.seen.Unrecord(ref)
		return model.Reference{}, model.Unavailable(op, err)
	}
	n.nonce = nonce
	n.receipts[ref] = model.Receipt{Reference: ref, Status: model.StatusPending}
	n.pending++

	n.logger.Debug(ctx, "transaction accepted",
		logger.String("reference", ref.Hex()),
		logger.String("from", from.Hex()),
		logger.Uint64("score", req.Score),
		logger.Uint64("nonce", nonce))
	return ref, nil
}

// ApplyBlock settles every transaction of b in order. Events go out before
// receipts flip, so an observer that sees a settled receipt has also been
// sent its events.
func (n *Node) ApplyBlock(ctx context.Context, b worker.Block) error {
	var events []model.Event
	receipts := make([]model.Receipt, 0, len(b.Txs))
	for _, tx := range b.Txs {
		rcpt := model.Receipt{Reference: tx.Reference, Block: b.Number, Timestamp: b.Timestamp}
		evs, err := n.execute(ctx, tx, b)
		if err != nil {
			rcpt.Status = model.StatusFailed
			rcpt.Reason = err.Error()
			n.logger.Info(ctx, "transaction reverted",
				logger.String("reference", tx.Reference.Hex()), logger.String("reason", rcpt.Reason))
		} else {
			rcpt.Status = model.StatusConfirmed
			events = append(events, evs...)
		}
		receipts = append(receipts, rcpt)
		metrics.RecordTransaction(rcpt.Status.String())
	}
	n.publish(events)
	n.settle(receipts)
	return nil
}

// execute runs one transaction against the table. A returned error is the
// revert reason.
func (n *Node) execute(ctx context.Context, tx model.Transaction, b worker.Block) ([]model.Event, error) { //nolint:gocritic // read-only copy
	if len(tx.GameName) > n.maxNameLen {
		return nil, errors.New(ReasonGameNameTooLong)
	}
	entry := model.ScoreEntry{Player: tx.From, Score: tx.Score, GameName: tx.GameName, Timestamp: b.Timestamp}
	out, err := n.store.Apply(ctx, entry)
	if err != nil {
		return nil, err
	}

	events := []model.Event{{
		Kind:      model.EventScoreSubmitted,
		Player:    tx.From,
		Score:     tx.Score,
		GameName:  tx.GameName,
		Timestamp: b.Timestamp,
		NewRank:   out.NewRank,
		Reference: tx.Reference,
		Block:     b.Number,
	}}
	if out.NewRank != out.PrevRank {
		events = append(events, model.Event{
			Kind: model.EventLeaderboardUpdated, Player: tx.From, Score: tx.Score,
			NewRank: out.NewRank, Reference: tx.Reference, Block: b.Number, Timestamp: b.Timestamp,
		})
	}
	if out.HasEvicted {
		events = append(events, model.Event{
			Kind: model.EventLeaderboardUpdated, Player: out.Evicted,
			NewRank: model.Unranked, Reference: tx.Reference, Block: b.Number, Timestamp: b.Timestamp,
		})
	}
	return events, nil
}

func (n *Node) settle(receipts []model.Receipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range receipts {
		if prev, ok := n.receipts[r.Reference]; ok && prev.Status == model.StatusPending {
			n.pending--
		}
		n.receipts[r.Reference] = r
		n.settled = append(n.settled, r.Reference)
	}
	for len(n.settled) > n.retention {
		delete(n.receipts, n.settled[0])
		n.settled = n.settled[1:]
	}
}

// Settlement reports the receipt of ref.
func (n *Node) Settlement(ctx context.Context, ref model.Reference) (model.Receipt, error) {
	const op = "chain.settlement"
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, model.Unavailable(op, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.receipts[ref]
	if !ok {
		return model.Receipt{}, model.NewKind(op, model.ErrUnknownReference, "unknown reference "+ref.Hex())
	}
	return r, nil
}

// TopScores returns the first count table entries.
func (n *Node) TopScores(ctx context.Context, count int) ([]model.ScoreEntry, error) {
	const op = "chain.top_scores"
	if err := ledger.CheckCount(op, count); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, model.Unavailable(op, err)
	}
	out, err := n.store.TopN(ctx, count)
	if err != nil {
		return nil, model.WrapKind(op, model.ErrInvalidArgument, err)
	}
	return out, nil
}

// PlayerBestScore returns the personal best of player.
func (n *Node) PlayerBestScore(ctx context.Context, player model.Player) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.Unavailable("chain.player_best_score", err)
	}
	return n.store.Best(ctx, player), nil
}

// PlayerRank returns the table position of player.
func (n *Node) PlayerRank(ctx context.Context, player model.Player) (model.Rank, error) {
	if err := ctx.Err(); err != nil {
		return model.Unranked, model.Unavailable("chain.player_rank", err)
	}
	return n.store.Rank(ctx, player), nil
}

// TopScoresCount returns the table size.
func (n *Node) TopScoresCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.Unavailable("chain.top_scores_count", err)
	}
	return n.store.Count(ctx), nil
}

// Capacity returns the table bound.
func (n *Node) Capacity(context.Context) (int, error) {
	return n.store.Capacity(), nil
}

// Reset empties the table. Personal bests are kept.
func (n *Node) Reset(ctx context.Context, caller model.Player) error {
	const op = "chain.reset"
	if n.owner == (model.Player{}) || caller != n.owner {
		return model.Precondition(op, MsgNotOwner)
	}
	n.store.Reset(ctx)
	n.logger.Info(ctx, "leaderboard reset", logger.String("caller", caller.Hex()))
	return nil
}

// Subscribe registers fn for every event. Events of one block are delivered
// in order from the block worker goroutine; fn must not block.
func (n *Node) Subscribe(fn func(model.Event)) (unsubscribe func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		delete(n.subs, id)
	}
}

func (n *Node) publish(events []model.Event) {
	if len(events) == 0 {
		return
	}
	n.subMu.RLock()
	defer n.subMu.RUnlock()
	for _, ev := range events {
		metrics.RecordEvent(string(ev.Kind))
		for _, fn := range n.subs {
			fn(ev)
		}
	}
}

// Stats returns a snapshot of the node.
func (n *Node) Stats(ctx context.Context) Stats {
	n.mu.Lock()
	pending := n.pending
	n.mu.Unlock()
	return Stats{
		Height:    n.worker.Height(),
		Mempool:   n.pool.Len(ctx),
		Pending:   pending,
		TableSize: n.store.Count(ctx),
		Capacity:  n.store.Capacity(),
		Players:   n.store.Players(ctx),
	}
}
