// Package loadgen drives many simulated players against a ledger at once and
// verifies the table and rank invariants afterwards.
package loadgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/ledgerboard/internal/app"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
)

const (
	directoryPermission = 0o750
	progressInterval    = time.Second
	percent             = 100
)

// Target is the ledger surface a run needs.
type Target interface {
	ledger.Client
	ledger.Admin
}

// Report summarizes a run.
type Report struct {
	Players    int
	Submitted  int64
	Confirmed  int64
	Failed     int64
	TableSize  int
	Capacity   int
	Duration   time.Duration
	Violations []string
}

// OK reports whether every submission confirmed and no invariant broke.
func (r Report) OK() bool { return r.Failed == 0 && len(r.Violations) == 0 }

// Run executes the plans generated from cfg against target.
func Run(ctx context.Context, target Target, cfg Config, log logger.Logger) (Report, error) {
	cfg.normalize()
	if log == nil {
		log = logger.Get().Named("loadgen")
	}
	start := time.Now()
	plans := Generate(cfg)
	report := Report{Players: len(plans)}

	log.Info(ctx, "starting simulation",
		logger.Int("players", cfg.Players),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Uint64("seed", cfg.Seed))

	if cfg.OutputFile != "" {
		if err := savePlans(cfg.OutputFile, plans); err != nil {
			log.Warn(ctx, "failed to save plans", logger.Error(err))
		}
	}

	capacity, err := target.Capacity(ctx)
	if err != nil {
		return report, fmt.Errorf("read capacity: %w", err)
	}
	report.Capacity = capacity

	var (
		submitted, confirmed, failed atomic.Int64
		mu                           sync.Mutex
		expected                     = make(map[model.Player]uint64, len(plans))
	)
	notifier := service.NotifierFunc(func(s service.Signal) {
		switch s.Outcome {
		case service.OutcomeSuccess:
			confirmed.Add(1)
			mu.Lock()
			if s.Request.Score > expected[s.Player] {
				expected[s.Player] = s.Request.Score
			}
			mu.Unlock()
		default:
			failed.Add(1)
			log.Warn(ctx, "submission failed",
				logger.String("player", s.Player.Hex()), logger.String("message", s.Message))
		}
	})
	svc := service.New(target,
		service.WithLogger(log.Named("service")),
		service.WithNotifier(notifier),
		service.WithPollInterval(cfg.Poll),
		service.WithSettlementTimeout(cfg.Timeout),
		service.WithTopCount(1),
	)
	defer svc.Stop(ctx)

	stopProgress := reportProgress(ctx, log, int64(len(plans)*cfg.Rounds), &submitted, &confirmed, &failed)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, plan := range plans {
		g.Go(func() error {
			return drive(gctx, svc, plan, &submitted)
		})
	}
	err = g.Wait()
	stopProgress()
	if err != nil {
		return report, err
	}

	report.Submitted = submitted.Load()
	report.Confirmed = confirmed.Load()
	report.Failed = failed.Load()

	violations, err := Verify(ctx, target, capacity, expected)
	if err != nil {
		return report, fmt.Errorf("verify: %w", err)
	}
	report.Violations = violations
	if report.TableSize, err = target.TopScoresCount(ctx); err != nil {
		return report, fmt.Errorf("read table size: %w", err)
	}
	report.Duration = time.Since(start)

	logReport(ctx, log, report)
	return report, nil
}

// drive plays one player's submissions in order, each waiting for its
// outcome. Submission failures are counted by the notifier and do not stop
// the run.
func drive(ctx context.Context, svc *service.Service, plan Plan, submitted *atomic.Int64) error {
	sess, err := svc.Connect(ctx, plan.Player)
	if err != nil {
		return fmt.Errorf("connect %s: %w", plan.Player.Hex(), err)
	}
	defer func() { _ = svc.Disconnect(context.WithoutCancel(ctx), sess.ID()) }()

	for _, req := range plan.Submissions {
		submitted.Add(1)
		if _, err := sess.SubmitValues(ctx, scoreText(req.Score), req.GameName); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if _, err := sess.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func reportProgress(ctx context.Context, log logger.Logger, total int64, submitted, confirmed, failed *atomic.Int64) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("total", int(total)),
					logger.Int("confirmed", int(confirmed.Load())),
					logger.Int("failed", int(failed.Load())))
			}
		}
	}()
	return func() { close(done) }
}

func logReport(ctx context.Context, log logger.Logger, r Report) {
	var successRate, perSecond float64
	if r.Submitted > 0 {
		successRate = float64(r.Confirmed) / float64(r.Submitted) * percent
	}
	if r.Duration > 0 {
		perSecond = float64(r.Submitted) / r.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("players", r.Players),
		logger.Int("submitted", int(r.Submitted)),
		logger.Int("confirmed", int(r.Confirmed)),
		logger.Int("failed", int(r.Failed)),
		logger.Int("tableSize", r.TableSize),
		logger.Int("capacity", r.Capacity),
		logger.Duration("duration", r.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond),
		logger.Int("violations", len(r.Violations)))
	for _, v := range r.Violations {
		log.Error(ctx, "invariant violated", logger.String("detail", v))
	}
}

func savePlans(filename string, plans []Plan) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WritePlans(f, plans); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write plans: %w", err)
	}
	return f.Close()
}
