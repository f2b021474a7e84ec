// Command scoreboard is the player-facing client of the score ledger. It
// shows the leaderboard, submits scores and tracks them to settlement, and
// drives simulated players against a running ledger.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/ledgerboard/internal/adapters/ledgerhttp"
	"github.com/okian/ledgerboard/internal/config"
	"github.com/okian/ledgerboard/pkg/logger"
)

var (
	errSubmissionFailed = errors.New("submission failed")
	errSimulationFailed = errors.New("simulation found problems")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	if err := newApp(cfg, os.Stdout, logger.Get()).RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// newApp builds the command tree. Commands write their results to out and
// log through log.
func newApp(cfg *config.Config, out io.Writer, log logger.Logger) *cli.App {
	r := &runner{cfg: cfg, log: log}
	return &cli.App{
		Name:   "scoreboard",
		Usage:  "read and write the on-ledger leaderboard",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "base URL of the ledger gateway",
				Value: cfg.LedgerURL,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: cfg.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			if err := logger.SetLevelString(c.String("log-level")); err != nil {
				return err
			}
			client, err := ledgerhttp.New(c.String("url"),
				ledgerhttp.WithTimeout(cfg.HTTPTimeout()),
				ledgerhttp.WithLogger(log.Named("ledgerhttp")),
			)
			if err != nil {
				return err
			}
			r.client = client
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "view",
				Usage: "show the top table and, with --player, that player's best score and rank",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Usage: "hex address of the viewer"},
					&cli.IntFlag{Name: "top", Usage: "rows to show", Value: cfg.TopCount},
				},
				Action: r.view,
			},
			{
				Name:  "submit",
				Usage: "submit a score and wait for it to settle",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Usage: "hex address of the submitter", Required: true},
					&cli.StringFlag{Name: "score", Usage: "positive integer score", Required: true},
					&cli.StringFlag{Name: "game", Usage: "game name", Required: true},
					&cli.DurationFlag{Name: "timeout", Usage: "settlement timeout", Value: cfg.SettlementTimeout()},
					&cli.DurationFlag{Name: "poll", Usage: "settlement poll interval", Value: cfg.PollInterval()},
				},
				Action: r.submit,
			},
			{
				Name:  "simulate",
				Usage: "drive simulated players and verify the resulting table",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "players", Usage: "distinct identities", Value: defaultSimulation.Players},
					&cli.IntFlag{Name: "rounds", Usage: "submissions per player", Value: defaultSimulation.Rounds},
					&cli.IntFlag{Name: "workers", Usage: "players driven at once", Value: defaultSimulation.Workers},
					&cli.Uint64Flag{Name: "max-score", Usage: "highest generated score", Value: defaultSimulation.MaxScore},
					&cli.Uint64Flag{Name: "seed", Usage: "seed for identities and scores", Value: defaultSimulation.Seed},
					&cli.DurationFlag{Name: "poll", Usage: "settlement poll interval", Value: defaultSimulation.Poll},
					&cli.DurationFlag{Name: "timeout", Usage: "settlement timeout", Value: cfg.SettlementTimeout()},
					&cli.StringFlag{Name: "output", Usage: "write the generated plan to this JSON file"},
				},
				Action: r.simulate,
			},
			{
				Name:  "reset",
				Usage: "clear the top table (owner only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caller", Usage: "hex address of the owner", Required: true},
				},
				Action: r.reset,
			},
			{
				Name:   "stats",
				Usage:  "show gateway statistics",
				Action: r.stats,
			},
		},
	}
}
