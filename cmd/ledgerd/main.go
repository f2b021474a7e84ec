// Command ledgerd runs the simulated score ledger behind its HTTP gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/ledgerboard/internal/adapters/chain"
	"github.com/okian/ledgerboard/internal/adapters/http/api"
	"github.com/okian/ledgerboard/internal/adapters/http/swagger"
	"github.com/okian/ledgerboard/internal/config"
	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/pkg/logger"
	"github.com/okian/ledgerboard/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nodeMetricsInterval       = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	maxTopCount               = 1_000
)

func main() {
	// Custom system metrics replace the default Go and process collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
	)

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "ledgerd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the gateway until ctx is cancelled, then shuts everything down.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	node, err := newNode(cfg, log)
	if err != nil {
		return err
	}
	unsubscribe := node.Subscribe(func(ev model.Event) { logEvent(ctx, log, ev) })
	defer unsubscribe()
	node.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := node.Stop(stopCtx); err != nil {
			log.Error(ctx, "node shutdown failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startNodeMetricsUpdater(ctx, node)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, node, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Int("table_capacity", cfg.TableCapacity))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newNode builds the ledger node from configuration.
func newNode(cfg *config.Config, log logger.Logger) (*chain.Node, error) {
	return chain.NewNode(
		chain.WithLogger(log.Named("chain")),
		chain.WithCapacity(cfg.TableCapacity),
		chain.WithMempoolSize(cfg.MempoolSize),
		chain.WithBlockTime(cfg.BlockTimeMin(), cfg.BlockTimeMax()),
		chain.WithMaxGameNameLength(cfg.MaxGameNameLength),
		chain.WithDedupeSize(cfg.DedupeSize),
		chain.WithOwner(cfg.Owner),
	)
}

// newHandler registers the gateway routes for node on a fresh mux.
func newHandler(ctx context.Context, node *chain.Node, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	stats := api.StatsFunc(func(ctx context.Context) any { return node.Stats(ctx) })
	api.NewServer(node, stats,
		api.WithMaxCount(maxTopCount),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	swagger.Register(ctx, mux)
	return mux
}

// logEvent writes ledger notifications to the debug log.
func logEvent(ctx context.Context, log logger.Logger, ev model.Event) {
	fields := []logger.Field{
		logger.String("kind", string(ev.Kind)),
		logger.String("player", ev.Player.Hex()),
		logger.Uint64("block", ev.Block),
	}
	switch ev.Kind {
	case model.EventScoreSubmitted:
		fields = append(fields,
			logger.Uint64("score", ev.Score),
			logger.String("game", ev.GameName),
			logger.String("reference", ev.Reference.Hex()))
	case model.EventLeaderboardUpdated:
		fields = append(fields, logger.Int("rank", ev.NewRank.Position()))
	}
	log.Debug(ctx, "ledger event", fields...)
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startNodeMetricsUpdater mirrors node stats into gauges until ctx is done.
func startNodeMetricsUpdater(ctx context.Context, node *chain.Node) {
	ticker := time.NewTicker(nodeMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateNodeMetrics(ctx, node)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateNodeMetrics(ctx context.Context, node *chain.Node) {
	st := node.Stats(ctx)
	metrics.UpdateMempoolSize(st.Mempool)
	metrics.UpdateTableSize(st.TableSize)
	metrics.UpdateTrackedPlayers(st.Players)
}
