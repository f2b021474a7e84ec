// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Player identifies an account on the ledger.
type Player = common.Address

// ScoreEntry is one ranked record of the leaderboard table.
type ScoreEntry struct {
	Player    Player
	Score     uint64
	GameName  string
	Timestamp uint64 // ledger-assigned, unix seconds
}

// Time returns the ledger timestamp as a time.Time.
func (e ScoreEntry) Time() time.Time {
	if e.Timestamp > math.MaxInt64 {
		return time.Unix(math.MaxInt64, 0)
	}
	return time.Unix(int64(e.Timestamp), 0)
}

// Rank is a zero-based position in the top table.
type Rank int

// Unranked marks a player whose best score is not in the table.
const Unranked Rank = -1

// Ranked reports whether r points into the table.
func (r Rank) Ranked() bool { return r >= 0 }

// Position returns the one-based display position, or 0 when unranked.
func (r Rank) Position() int {
	if !r.Ranked() {
		return 0
	}
	return int(r) + 1
}
