package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/ranking"
	"github.com/okian/ledgerboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then acceptance sequence ASC. "before" means ranks
// earlier, so in-order traversal yields the table from best to worst and
// subtree sizes give a node's position in O(log n).

const defaultCapacity = 100

// key orders table rows. seq is the store's acceptance counter; ledger
// timestamps are non-decreasing in seq, so ties resolve to the earlier
// timestamp as well.
type key struct {
	score uint64
	seq   uint64
}

func (a key) before(b key) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.seq < b.seq
}

type node struct {
	key   key
	entry model.ScoreEntry
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if fresh.key.before(n.key) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case k == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k)
		}
	case k.before(n.key):
		n.left = deleteNode(n.left, k)
	default:
		n.right = deleteNode(n.right, k)
	}
	fix(n)
	return n
}

// position returns the zero-based in-order index of k, or -1.
func position(n *node, k key) int {
	r := 0
	for n != nil {
		switch {
		case k == n.key:
			return r + nsize(n.left)
		case k.before(n.key):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

func last(n *node) *node {
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// collectTopN appends up to limit entries in table order.
func collectTopN(n *node, limit int, out *[]model.ScoreEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.entry)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps the bounded table in an order-statistic treap and the
// personal bests in a map.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	inTable  map[model.Player]key
	best     map[model.Player]uint64
	capacity int
	seq      uint64
	seed     uint64
	rng      *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		capacity: defaultCapacity,
		inTable:  make(map[model.Player]key),
		best:     make(map[model.Player]uint64),
		seed:     uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed>>1|1))
	return s
}

var _ Store = (*TreapStore)(nil)

// Apply implements Store.Apply with O(log n) expected time.
func (s *TreapStore) Apply(_ context.Context, e model.ScoreEntry) (Outcome, error) {
	if e.Player == (model.Player{}) {
		return Outcome{}, ErrZeroPlayer
	}
	start := time.Now()
	defer func() {
		metrics.RecordTableUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{PrevRank: s.rankLocked(e.Player)}
	out.NewRank = out.PrevRank
	if e.Score <= s.best[e.Player] {
		return out, nil
	}
	s.best[e.Player] = e.Score
	out.BestImproved = true

	old, listed := s.inTable[e.Player]
	if !listed {
		var tail model.ScoreEntry
		if n := last(s.root); n != nil {
			tail = n.entry
		}
		if !ranking.Qualifies(e.Score, len(s.inTable), s.capacity, tail) {
			s.updateGauges()
			return out, nil
		}
	}
	if listed {
		s.root = deleteNode(s.root, old)
		delete(s.inTable, e.Player)
	}

	s.seq++
	k := key{score: e.Score, seq: s.seq}
	s.root = insert(s.root, &node{key: k, entry: e, prio: s.rng.Uint64(), size: 1})
	s.inTable[e.Player] = k

	if len(s.inTable) > s.capacity {
		tail := last(s.root)
		s.root = deleteNode(s.root, tail.key)
		delete(s.inTable, tail.entry.Player)
		out.Evicted, out.HasEvicted = tail.entry.Player, true
	}
	out.NewRank = s.rankLocked(e.Player)
	s.updateGauges()
	return out, nil
}

func (s *TreapStore) updateGauges() {
	metrics.UpdateTableSize(len(s.inTable))
	metrics.UpdateTrackedPlayers(len(s.best))
}

func (s *TreapStore) rankLocked(p model.Player) model.Rank {
	k, ok := s.inTable[p]
	if !ok {
		return model.Unranked
	}
	return model.Rank(position(s.root, k))
}

// Best returns the personal best for player.
func (s *TreapStore) Best(_ context.Context, player model.Player) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best[player]
}

// Rank returns the current table position for player in O(log n).
func (s *TreapStore) Rank(_ context.Context, player model.Player) model.Rank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rankLocked(player)
}

// TopN returns the top n entries in table order.
func (s *TreapStore) TopN(_ context.Context, n int) ([]model.ScoreEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ScoreEntry, 0, min(n, len(s.inTable)))
	collectTopN(s.root, n, &out)
	return out, nil
}

// Count returns the table size.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inTable)
}

// Capacity returns the table bound.
func (s *TreapStore) Capacity() int { return s.capacity }

// Players returns how many players have a personal best.
func (s *TreapStore) Players(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.best)
}

// Reset empties the table. The sequence keeps counting so ties stay ordered
// by acceptance across resets.
func (s *TreapStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = nil
	s.inTable = make(map[model.Player]key)
	s.updateGauges()
}
