package ledger

import (
	"context"
	"time"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"
)

// Instrument wraps c so every call is timed and failures are counted by
// kind.
func Instrument(c Client, l logger.Logger) Client {
	if l == nil {
		l = logger.Get().Named("ledger")
	}
	return &instrumented{next: c, logger: l}
}

type instrumented struct {
	next   Client
	logger logger.Logger
}

func (i *instrumented) observe(ctx context.Context, op string, start time.Time, err error) {
	metrics.RecordLedgerCall(op, float64(time.Since(start).Microseconds())/1000)
	if err == nil {
		return
	}
	kind := model.KindLabel(err)
	metrics.RecordLedgerCallError(op, kind)
	i.logger.Debug(ctx, "ledger call failed", logger.String("op", op), logger.String("kind", kind), logger.Error(err))
}

func (i *instrumented) TopScores(ctx context.Context, count int) ([]model.ScoreEntry, error) {
	start := time.Now()
	out, err := i.next.TopScores(ctx, count)
	i.observe(ctx, "top_scores", start, err)
	return out, err
}

func (i *instrumented) PlayerBestScore(ctx context.Context, player model.Player) (uint64, error) {
	start := time.Now()
	out, err := i.next.PlayerBestScore(ctx, player)
	i.observe(ctx, "player_best_score", start, err)
	return out, err
}

func (i *instrumented) PlayerRank(ctx context.Context, player model.Player) (model.Rank, error) {
	start := time.Now()
	out, err := i.next.PlayerRank(ctx, player)
	i.observe(ctx, "player_rank", start, err)
	return out, err
}

func (i *instrumented) TopScoresCount(ctx context.Context) (int, error) {
	start := time.Now()
	out, err := i.next.TopScoresCount(ctx)
	i.observe(ctx, "top_scores_count", start, err)
	return out, err
}

func (i *instrumented) SubmitScore(ctx context.Context, from model.Player, req model.SubmissionRequest) (model.Reference, error) {
	start := time.Now()
	out, err := i.next.SubmitScore(ctx, from, req)
	i.observe(ctx, "submit_score", start, err)
	return out, err
}

func (i *instrumented) Settlement(ctx context.Context, ref model.Reference) (model.Receipt, error) {
	start := time.Now()
	out, err := i.next.Settlement(ctx, ref)
	i.observe(ctx, "settlement", start, err)
	return out, err
}
