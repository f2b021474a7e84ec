package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/okian/ledgerboard/internal/adapters/ledgerhttp"
	service "github.com/okian/ledgerboard/internal/app"
	"github.com/okian/ledgerboard/internal/config"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/internal/loadgen"
	"github.com/okian/ledgerboard/internal/viewmodel"
	"github.com/okian/ledgerboard/pkg/logger"
)

var defaultSimulation = loadgen.DefaultConfig()

type runner struct {
	cfg    *config.Config
	log    logger.Logger
	client *ledgerhttp.Client
}

func (r *runner) view(c *cli.Context) error {
	var player model.Player
	if s := c.String("player"); s != "" {
		p, err := types.ParsePlayer(s)
		if err != nil {
			return err
		}
		player = p
	}

	cache := viewmodel.New(r.client, player,
		viewmodel.WithTopCount(c.Int("top")),
		viewmodel.WithRefreshTimeout(r.cfg.RefreshTimeout()),
		viewmodel.WithLogger(r.log.Named("viewmodel")),
	)
	var err error
	if player == (model.Player{}) {
		err = cache.Refresh(c.Context, viewmodel.SlotTable)
	} else {
		err = cache.RefreshAll(c.Context)
	}
	snap := cache.Snapshot()
	if !snap.Of(viewmodel.SlotTable).Loaded {
		return err
	}
	if err != nil {
		r.log.Warn(c.Context, "some reads failed", logger.Error(err))
	}
	return renderView(c.App.Writer, snap)
}

func (r *runner) submit(c *cli.Context) error {
	player, err := types.ParsePlayer(c.String("player"))
	if err != nil {
		return err
	}

	signals := make(chan service.Signal, 1)
	svc := service.New(r.client,
		service.WithLogger(r.log.Named("service")),
		service.WithNotifier(service.NotifierFunc(func(s service.Signal) { signals <- s })),
		service.WithPollInterval(c.Duration("poll")),
		service.WithSettlementTimeout(c.Duration("timeout")),
		service.WithRefreshTimeout(r.cfg.RefreshTimeout()),
		service.WithTopCount(r.cfg.TopCount),
	)
	defer svc.Stop(c.Context)

	session, err := svc.Connect(c.Context, player)
	if err != nil {
		return err
	}
	if ref, err := session.SubmitValues(c.Context, c.String("score"), c.String("game")); err == nil {
		r.log.Info(c.Context, "submitted", logger.String("reference", ref.Hex()))
	}

	select {
	case sig := <-signals:
		if err := renderSignal(c.App.Writer, sig); err != nil {
			return err
		}
		if sig.Outcome != service.OutcomeSuccess {
			return fmt.Errorf("%w: %s", errSubmissionFailed, sig.Message)
		}
		return renderPlayer(c.App.Writer, session.View())
	case <-c.Context.Done():
		return c.Context.Err()
	}
}

func (r *runner) simulate(c *cli.Context) error {
	cfg := loadgen.Config{
		Players:    c.Int("players"),
		Rounds:     c.Int("rounds"),
		Workers:    c.Int("workers"),
		MaxScore:   c.Uint64("max-score"),
		Seed:       c.Uint64("seed"),
		Poll:       c.Duration("poll"),
		Timeout:    c.Duration("timeout"),
		OutputFile: c.String("output"),
	}
	report, err := loadgen.Run(c.Context, r.client, cfg, r.log.Named("loadgen"))
	if err != nil {
		return err
	}
	if err := renderReport(c.App.Writer, report); err != nil {
		return err
	}
	if !report.OK() {
		return errSimulationFailed
	}
	return nil
}

func (r *runner) reset(c *cli.Context) error {
	caller, err := types.ParsePlayer(c.String("caller"))
	if err != nil {
		return err
	}
	if err := r.client.Reset(c.Context, caller); err != nil {
		return err
	}
	_, err = fmt.Fprint(c.App.Writer, successLine("table reset"))
	return err
}

func (r *runner) stats(c *cli.Context) error {
	st, err := r.client.Stats(c.Context)
	if err != nil {
		return err
	}
	return renderStats(c.App.Writer, st)
}
