package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gekko-logistics/waybills-server/internal/api"
	"github.com/gekko-logistics/waybills-server/internal/api/handlers"
	"github.com/gekko-logistics/waybills-server/internal/cache"
	"github.com/gekko-logistics/waybills-server/internal/config"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
	"github.com/gekko-logistics/waybills-server/internal/imports"
	"github.com/gekko-logistics/waybills-server/internal/jobs"
	"github.com/gekko-logistics/waybills-server/internal/locks"
	"github.com/gekko-logistics/waybills-server/internal/metrics"
	"github.com/gekko-logistics/waybills-server/internal/storage/postgres"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the waybills HTTP server",
	Long: `Start the waybills HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Start the import worker, NATS audit consumer, and River maintenance jobs
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

// logNotifier stands in when NATS is not configured. Imports still commit;
// the notification is only logged.
type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) PublishImported(_ context.Context, event events.ImportedEvent) error {
	n.logger.Info().
		Str("tenant", event.TenantID).
		Str("job_id", event.ImportJobID).
		Int("total", event.TotalRows).
		Msg("import completed (event bus disabled)")
	return nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting waybills server")

	metrics.AppInfo.WithLabelValues(Version, GitCommit, BuildDate).Set(1)

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	}
	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.NewWithConfig(poolCtx, poolCfg)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	versions := cache.NewVersions(cfg.Cache.VersionIdleLifetime, logger)
	responseCache := cache.NewResponseCache(cfg.Cache.ResponseTTL, versions)

	var notifier imports.Notifier
	var consumer *events.AuditConsumer
	if cfg.Events.URL != "" {
		conn, err := nats.Connect(cfg.Events.URL, nats.Name("waybills-server"))
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn, logger)
		if err != nil {
			return fmt.Errorf("event publisher init failed: %w", err)
		}
		notifier = publisher

		consumer, err = events.NewAuditConsumer(conn, repo.Audits(), logger)
		if err != nil {
			return fmt.Errorf("audit consumer init failed: %w", err)
		}
	} else {
		logger.Warn().Msg("NATS_URL not set, import events will only be logged")
		notifier = logNotifier{logger: logger}
	}

	engine := imports.NewEngine(repo.Imports(), notifier, metrics.ImportObserver{}, logger)
	queue := imports.NewQueue(cfg.Imports.QueueCapacity)
	intake := imports.NewIntake(repo.ImportJobs(), queue, logger)
	importWorker := imports.NewWorker(queue, repo.ImportJobs(), engine, versions, logger)

	waybillService := waybills.NewService(repo.Waybills(), repo.Catalog())
	updateService := waybills.NewUpdateService(repo.Waybills(), versions, logger)
	lockService := locks.NewService(repo.Locks(), logger)

	// River runs the maintenance schedule: the stuck-import sweep and the
	// audit retention cleanup.
	slogLogger := slog.Default()
	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.ImportJobSweepWorker{
		Jobs:      repo.ImportJobs(),
		Threshold: cfg.Jobs.StuckJobThreshold,
		Logger:    slogLogger,
	})
	river.AddWorker(workers, jobs.ImportAuditCleanupWorker{
		Audits:    repo.Audits(),
		Retention: cfg.Jobs.AuditRetention,
		Logger:    slogLogger,
	})
	riverClient, err := jobs.NewClient(pool, workers, slogLogger, jobs.NewPeriodicJobs())
	if err != nil {
		return fmt.Errorf("river client init failed: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{
		Waybills: handlers.NewWaybillsHandler(waybillService, updateService, responseCache, cfg.Environment),
		Imports:  handlers.NewImportsHandler(engine, intake, repo.ImportJobs(), versions, cfg.Imports.MaxUploadBytes, cfg.Environment),
		Catalog:  handlers.NewCatalogHandler(waybillService, cfg.Environment),
		Reports:  handlers.NewReportsHandler(waybillService, lockService, cfg.Environment),
		Audits:   handlers.NewAuditsHandler(repo.Audits(), cfg.Environment),
		DB:       pool,
		Env:      cfg.Environment,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if consumer != nil {
		if err := consumer.Start(groupCtx); err != nil {
			return fmt.Errorf("audit consumer failed to start: %w", err)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error().Err(err).Msg("audit consumer shutdown error")
			}
		}()
		logger.Info().Msg("audit consumer started")
	}

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("river background job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		} else {
			logger.Info().Msg("river workers stopped")
		}
	}()

	group.Go(func() error {
		if err := importWorker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.ImportQueueDepth.Set(float64(queue.Len()))
			}
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	// Override logging from flags if provided
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}
