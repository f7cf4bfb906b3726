package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/intramurals/internal/adapters/http/api"
	"github.com/okian/intramurals/internal/adapters/http/swagger"
	"github.com/okian/intramurals/internal/adapters/notify"
	"github.com/okian/intramurals/internal/adapters/repository"
	app "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/config"
	"github.com/okian/intramurals/internal/seed"
	"github.com/okian/intramurals/pkg/logger"
	"github.com/okian/intramurals/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "intramurals stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc, err := newService(store, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Warn(ctx, "service stop failed", logger.Error(err))
		}
	}()

	if cfg.SeedFile != "" {
		if err := applySeed(ctx, svc, cfg.SeedFile, log); err != nil {
			return err
		}
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		if err := startKafkaForwarder(ctx, svc, brokers, cfg.KafkaTopic, log); err != nil {
			return err
		}
	}

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc, cfg, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", store.Driver()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the record store selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Records, error) {
	target := cfg.SQLitePath
	if cfg.StoreDriver == config.StorePostgres {
		target = cfg.PostgresDSN
	}
	return repository.Open(ctx, cfg.StoreDriver, target)
}

// newService builds the leaderboard service from configuration.
func newService(store app.Store, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	baseline, err := cfg.Baseline()
	if err != nil {
		return nil, err
	}
	return app.New(store,
		app.WithLogger(log),
		app.WithQueueSize(cfg.CommandQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithNotificationLimit(cfg.NotificationLimit),
		app.WithFacilitator(cfg.FacilitatorTeamID),
		app.WithBaseline(baseline),
	), nil
}

// newRouter mounts the business API and the API docs.
func newRouter(svc api.Dependencies, cfg *config.Config, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc,
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithLogger(log.Named("http")),
	).Register(r)
	swagger.Register(r)
	return r
}

// applySeed loads the fixture into an empty competition.
func applySeed(ctx context.Context, svc *app.Service, path string, log logger.Logger) error {
	fx, err := seed.Load(path)
	if err != nil {
		return err
	}
	sum, err := seed.Apply(ctx, svc, fx)
	if errors.Is(err, seed.ErrNotEmpty) {
		log.Info(ctx, "store already populated; seed skipped", logger.String("seed_file", path))
		return nil
	}
	if err != nil {
		return err
	}
	log.Info(ctx, "seed applied",
		logger.String("seed_file", path),
		logger.Int("teams", sum.Teams),
		logger.Int("events", sum.Events),
		logger.Int("results", sum.Results),
		logger.Int("logs", sum.Logs))
	return nil
}

// startKafkaForwarder relays live notifications to a Kafka topic.
func startKafkaForwarder(ctx context.Context, svc *app.Service, brokers []string, topic string, log logger.Logger) error {
	sub, err := svc.Subscribe(ctx)
	if err != nil {
		return err
	}
	pub := notify.NewKafkaPublisher(brokers, topic)
	go func() {
		notify.Forward(ctx, sub, pub, log.Named("kafka"))
		if err := pub.Close(); err != nil {
			log.Warn(ctx, "kafka writer close failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "forwarding notifications to kafka", logger.Any("brokers", brokers), logger.String("topic", topic))
	return nil
}

// startServiceMetricsUpdater periodically refreshes queue gauges.
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

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
