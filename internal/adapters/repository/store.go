// Package repository holds the ledger-side leaderboard state: the bounded
// top table and the per-player personal bests.
package repository

import (
	"context"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Outcome describes what one applied submission changed.
type Outcome struct {
	// BestImproved is true when the score beat the player's stored best.
	BestImproved bool
	// PrevRank and NewRank are the player's table positions around the write.
	PrevRank model.Rank
	NewRank  model.Rank
	// Evicted is set when the write pushed another player out of a full table.
	Evicted    model.Player
	HasEvicted bool
}

// Store provides read/write access to the leaderboard state.
type Store interface {
	// Apply records an accepted submission. The personal best only moves on a
	// strictly greater score, and the table only changes when the best does.
	Apply(ctx context.Context, e model.ScoreEntry) (Outcome, error)

	// Best returns the player's personal best, 0 when unknown.
	Best(ctx context.Context, player model.Player) uint64

	// Rank returns the zero-based table position or model.Unranked.
	Rank(ctx context.Context, player model.Player) model.Rank

	// TopN returns up to n entries in table order.
	TopN(ctx context.Context, n int) ([]model.ScoreEntry, error)

	// Count returns the number of entries in the table.
	Count(ctx context.Context) int

	// Capacity returns the table bound.
	Capacity() int

	// Players returns how many players have a personal best.
	Players(ctx context.Context) int

	// Reset empties the table. Personal bests survive.
	Reset(ctx context.Context)
}
