// Package viewmodel keeps the last good reads of the leaderboard for one
// viewer: the top table, their best score and their rank.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

const defaultTopCount = 20

// SlotStatus describes the freshness of one slot.
type SlotStatus struct {
	Loaded    bool      // at least one read succeeded
	Err       error     // last refresh error, nil after a success
	UpdatedAt time.Time // time of the last successful read
	Refreshes uint64    // refresh attempts, successful or not
}

// Stale reports whether the slot shows an older value because the last
// refresh failed.
func (s SlotStatus) Stale() bool { return s.Loaded && s.Err != nil }

// Snapshot is a consistent copy of the cache.
type Snapshot struct {
	Player    model.Player
	Table     []model.ScoreEntry
	BestScore uint64
	Rank      model.Rank
	Status    [slotCount]SlotStatus
}

// Of returns the status of slot s.
func (s Snapshot) Of(slot Slot) SlotStatus {
	if !slot.valid() {
		return SlotStatus{}
	}
	return s.Status[slot]
}

// Cache holds the reads for one viewer. Each slot is replaced atomically on a
// successful read and kept as is when a read fails.
type Cache struct {
	reader   ledger.Reader
	player   model.Player
	topCount int
	timeout  time.Duration
	logger   logger.Logger

	mu     sync.RWMutex
	table  []model.ScoreEntry
	best   uint64
	rank   model.Rank
	status [slotCount]SlotStatus
}

// New returns an empty cache for player. A zero player can only read the
// table.
func New(r ledger.Reader, player model.Player, opts ...Option) *Cache {
	c := &Cache{
		reader:   r,
		player:   player,
		topCount: defaultTopCount,
		rank:     model.Unranked,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("viewmodel")
	}
	return c
}

// Refresh re-reads one slot.
func (c *Cache) Refresh(ctx context.Context, slot Slot) error {
	const op = "viewmodel.refresh"
	if !slot.valid() {
		return model.InvalidArgument(op, fmt.Sprintf("unknown slot %d", slot))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		table []model.ScoreEntry
		best  uint64
		rank  model.Rank
		err   error
	)
	switch slot {
	case SlotTable:
		table, err = c.reader.TopScores(ctx, c.topCount)
	case SlotBestScore:
		if err = c.requirePlayer(op); err == nil {
			best, err = c.reader.PlayerBestScore(ctx, c.player)
		}
	case SlotRank:
		if err = c.requirePlayer(op); err == nil {
			rank, err = c.reader.PlayerRank(ctx, c.player)
		}
	}

	c.mu.Lock()
	st := &c.status[slot]
	st.Refreshes++
	if err != nil {
		st.Err = err
		c.mu.Unlock()
		metrics.RecordCacheRefresh(slot.String(), "error")
		c.logger.Warn(ctx, "refresh failed, keeping previous value",
			logger.String("slot", slot.String()),
			logger.Bool("loaded", st.Loaded),
			logger.Error(err))
		return err
	}
	switch slot {
	case SlotTable:
		c.table = table
	case SlotBestScore:
		c.best = best
	case SlotRank:
		c.rank = rank
	}
	st.Loaded = true
	st.Err = nil
	st.UpdatedAt = time.Now()
	c.mu.Unlock()

	metrics.RecordCacheRefresh(slot.String(), "ok")
	return nil
}

// RefreshAll re-reads every slot concurrently. A failing slot does not stop
// the others; the returned error joins every slot error.
func (c *Cache) RefreshAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		errs [slotCount]error
	)
	for _, slot := range Slots() {
		g.Go(func() error {
			errs[slot] = c.Refresh(ctx, slot)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs[:]...)
}

// Snapshot returns a copy of the cached values.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		Player:    c.player,
		BestScore: c.best,
		Rank:      c.rank,
		Status:    c.status,
	}
	if c.table != nil {
		s.Table = make([]model.ScoreEntry, len(c.table))
		copy(s.Table, c.table)
	}
	return s
}

// Player returns the viewer this cache reads for.
func (c *Cache) Player() model.Player { return c.player }

func (c *Cache) requirePlayer(op string) error {
	if c.player == (model.Player{}) {
		return model.Precondition(op, model.MsgNotConnected)
	}
	return nil
}
