// Package ranking holds the ordering rule of the leaderboard table and the
// checks a client can run against what the ledger returns.
package ranking

import (
	"errors"
	"fmt"

	"github.com/okian/ledgerboard/internal/domain/model"
)

var (
	ErrOrder        = errors.New("table out of order")
	ErrDuplicate    = errors.New("player listed twice")
	ErrOverflow     = errors.New("table exceeds capacity")
	ErrInconsistent = errors.New("rank inconsistent with table")
)

// Before reports whether a ranks above b: higher score first, and on equal
// scores the earlier timestamp wins.
func Before(a, b model.ScoreEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Timestamp < b.Timestamp
}

// Qualifies reports whether score would enter a table of the given capacity
// whose last entry is tail. A score equal to the tail does not qualify since
// the incumbent achieved it first.
func Qualifies(score uint64, size, capacity int, tail model.ScoreEntry) bool {
	if size < capacity {
		return true
	}
	return score > tail.Score
}

// VerifyTable checks the table invariants on a top-N read: non-increasing
// scores with ties ordered by timestamp, one entry per player, and size
// within capacity. A capacity of zero skips the size check.
func VerifyTable(table []model.ScoreEntry, capacity int) error {
	if capacity > 0 && len(table) > capacity {
		return fmt.Errorf("%w: %d > %d", ErrOverflow, len(table), capacity)
	}
	seen := make(map[model.Player]int, len(table))
	for i, e := range table {
		if j, ok := seen[e.Player]; ok {
			return fmt.Errorf("%w: %s at %d and %d", ErrDuplicate, e.Player.Hex(), j, i)
		}
		seen[e.Player] = i
		if i > 0 && Before(e, table[i-1]) {
			return fmt.Errorf("%w: position %d (%d) ranks above position %d (%d)",
				ErrOrder, i, e.Score, i-1, table[i-1].Score)
		}
	}
	return nil
}

// VerifyRank checks that rank, best and the table prefix agree for player.
// An unranked player must not appear in table; table must be read after
// rank and best with no intervening write.
func VerifyRank(player model.Player, rank model.Rank, best uint64, table []model.ScoreEntry) error {
	if !rank.Ranked() {
		for i, e := range table {
			if e.Player == player {
				return fmt.Errorf("%w: %s unranked but listed at %d", ErrInconsistent, player.Hex(), i)
			}
		}
		return nil
	}
	i := int(rank)
	if i >= len(table) {
		return fmt.Errorf("%w: rank %d beyond table of %d", ErrInconsistent, i, len(table))
	}
	if table[i].Player != player {
		return fmt.Errorf("%w: rank %d holds %s, want %s", ErrInconsistent, i, table[i].Player.Hex(), player.Hex())
	}
	if table[i].Score != best {
		return fmt.Errorf("%w: rank %d score %d, best %d", ErrInconsistent, i, table[i].Score, best)
	}
	return nil
}
