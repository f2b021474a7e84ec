package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/ranking"
	"github.com/okian/ledgerboard/internal/ledger"
)

// Verify checks the ledger's table and per-player reads against each other
// and against what the run confirmed. expected maps a player to the highest
// score confirmed for them during the run. It returns one line per
// violation.
func Verify(ctx context.Context, r ledger.Reader, capacity int, expected map[model.Player]uint64) ([]string, error) {
	size, err := r.TopScoresCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("read table size: %w", err)
	}
	var table []model.ScoreEntry
	if size > 0 {
		if table, err = r.TopScores(ctx, size); err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
	}

	var violations []string
	if err := ranking.VerifyTable(table, capacity); err != nil {
		violations = append(violations, err.Error())
	}
	if len(table) != size {
		violations = append(violations, fmt.Sprintf("table size %d but %d entries returned", size, len(table)))
	}

	for p, want := range expected {
		best, err := r.PlayerBestScore(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read best of %s: %w", p.Hex(), err)
		}
		rank, err := r.PlayerRank(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read rank of %s: %w", p.Hex(), err)
		}

		if best < want {
			violations = append(violations, fmt.Sprintf("%s: best %d below confirmed %d", p.Hex(), best, want))
		}
		if err := ranking.VerifyRank(p, rank, best, table); err != nil {
			violations = append(violations, err.Error())
		}
		if rank.Ranked() || best == 0 || capacity <= 0 {
			continue
		}
		// An unranked player with a best is only possible once the table is
		// full, and only at or below its last entry.
		switch {
		case len(table) < capacity:
			violations = append(violations, fmt.Sprintf("%s: best %d unranked in a table with free slots", p.Hex(), best))
		case best > table[len(table)-1].Score:
			violations = append(violations, fmt.Sprintf("%s: best %d unranked above tail %d", p.Hex(), best, table[len(table)-1].Score))
		}
	}
	return violations, nil
}
