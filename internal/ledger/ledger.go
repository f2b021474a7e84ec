// Package ledger is the typed bridge to the external score ledger: four
// idempotent reads, one write and settlement observation.
package ledger

import (
	"context"

	"github.com/okian/ledgerboard/internal/domain/model"
)

// Reader exposes the ledger's side-effect-free reads.
type Reader interface {
	// TopScores returns min(count, table size) entries in table order.
	// count must be positive.
	TopScores(ctx context.Context, count int) ([]model.ScoreEntry, error)

	// PlayerBestScore returns the player's personal best, 0 when none.
	PlayerBestScore(ctx context.Context, player model.Player) (uint64, error)

	// PlayerRank returns the zero-based table position or model.Unranked.
	PlayerRank(ctx context.Context, player model.Player) (model.Rank, error)

	// TopScoresCount returns the current table size.
	TopScoresCount(ctx context.Context) (int, error)
}

// Writer issues writes and observes their settlement.
type Writer interface {
	// SubmitScore returns as soon as the write is accepted for processing,
	// not when it settles.
	SubmitScore(ctx context.Context, from model.Player, req model.SubmissionRequest) (model.Reference, error)

	// Settlement reports the receipt for ref. A receipt with StatusPending
	// means the write has not settled yet. Unknown references fail with
	// model.ErrUnknownReference.
	Settlement(ctx context.Context, ref model.Reference) (model.Receipt, error)
}

// Client is the full ledger surface a session needs.
type Client interface {
	Reader
	Writer
}

// Admin exposes ledger operations outside the client protocol.
type Admin interface {
	// Capacity returns the table bound.
	Capacity(ctx context.Context) (int, error)

	// Reset empties the table. Only the ledger owner may call it.
	Reset(ctx context.Context, caller model.Player) error
}
