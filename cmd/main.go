package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/sportselo/internal/adapters/archive"
	"github.com/okian/sportselo/internal/adapters/http/api"
	"github.com/okian/sportselo/internal/adapters/http/swagger"
	"github.com/okian/sportselo/internal/adapters/pubsub"
	"github.com/okian/sportselo/internal/adapters/repository"
	app "github.com/okian/sportselo/internal/app"
	"github.com/okian/sportselo/internal/config"
	"github.com/okian/sportselo/internal/domain/sports"
	"github.com/okian/sportselo/pkg/logger"
	"github.com/okian/sportselo/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	embeddedNATSPort       = 4222
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(context.Background(), "service exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires every component from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	if cfg.LogFormat != "" && cfg.LogFormat != string(logger.FormatText) {
		if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
			return err
		}
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	publisher, cleanup, err := newPublisher(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer cleanup()

	svc := app.New(
		app.WithLogger(log),
		app.WithRegistry(registry),
		app.WithStore(store),
		app.WithPublisher(publisher),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithInitialRating(cfg.InitialRating),
		app.WithMaxPageSize(cfg.MaxPageSize),
	)
	// The pool outlives ctx so Stop can drain queued contests after a signal.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// newMux registers the API and its documentation.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return mux
}

// newRegistry builds the sports registry from configuration.
func newRegistry(cfg *config.Config) (*sports.Registry, error) {
	list := make([]sports.Sport, len(cfg.Sports))
	for i, s := range cfg.Sports {
		list[i] = sports.Sport{ID: s.ID, Name: s.Name, Active: s.Active, Route: s.Route, Kind: sports.Kind(s.Kind)}
	}
	return sports.NewRegistry(list)
}

// newStore opens the configured competitor store.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return repository.NewSQLStore(ctx, repository.DriverSQLite, cfg.StoreDSN)
	case config.DriverPostgres:
		return repository.NewSQLStore(ctx, repository.DriverPostgres, cfg.StoreDSN)
	default:
		return repository.NewMemoryStore(ctx), nil
	}
}

// newPublisher combines the configured event sinks. cleanup stops anything
// the sinks depend on and must run after the service has stopped.
func newPublisher(ctx context.Context, cfg *config.Config) (pubsub.Publisher, func(), error) {
	var (
		sinks    pubsub.Fanout
		embedded *pubsub.EmbeddedServer
	)
	cleanup := func() {
		if embedded != nil {
			embedded.Shutdown()
		}
	}
	fail := func(err error) (pubsub.Publisher, func(), error) {
		_ = sinks.Close()
		cleanup()
		return nil, func() {}, err
	}

	url := cfg.NATSURL
	if cfg.NATSEmbedded {
		srv, err := pubsub.StartEmbedded(embeddedNATSPort)
		if err != nil {
			return fail(err)
		}
		embedded = srv
		url = srv.ClientURL()
	}
	if url != "" {
		p, err := pubsub.NewNATSPublisher(url)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, p)
	}

	if cfg.ClickHouseAddr != "" {
		sink, err := archive.NewClickHouseSink(ctx, archive.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink)
	}

	switch len(sinks) {
	case 0:
		return pubsub.Noop{}, cleanup, nil
	case 1:
		return sinks[0], cleanup, nil
	default:
		return sinks, cleanup, nil
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// startServiceMetricsUpdater refreshes queue and competitor gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics pushes the service's live counters to the gauges.
func updateServiceMetrics(svc *app.Service) {
	// GetStats refreshes queue size, worker count and competitor totals.
	stats := svc.GetStats()

	if inFlight, ok := stats["inFlight"].(int); ok {
		metrics.UpdateWorkerInFlight(inFlight)
	}
	if pending, ok := stats["pending"].(int); ok {
		metrics.UpdateWorkerPending(pending)
	}
}
