package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nestling-tracker/internal/clients/reportgen"
	"nestling-tracker/internal/config"
	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/core/usecases"
	"nestling-tracker/internal/export"
	"nestling-tracker/internal/identity"
	"nestling-tracker/internal/logger"
	httpShell "nestling-tracker/internal/shell/http"
	"nestling-tracker/internal/shell/messaging"
	"nestling-tracker/internal/shell/scheduler"
	"nestling-tracker/internal/shell/storage"
)

// repositories bundles the storage adapters of one backend.
type repositories struct {
	children  usecases.ChildRepository
	events    usecases.EventRepository
	exports   export.ExportRepository
	schedules usecases.ScheduleRepository
	db        *sql.DB // nil for the memory backend
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flush, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer flush()

	zap.S().Infow("Starting nestling-tracker",
		"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"database", cfg.Database.Type,
		"kafka_enabled", cfg.Kafka.Enabled,
		"metrics_port", cfg.Metrics.Port,
		"scheduler_enabled", cfg.Scheduler.Enabled,
	)

	repos, err := buildRepositories(cfg)
	if err != nil {
		zap.S().Fatalw("Failed to initialize storage", "backend", cfg.Database.Type, "error", err)
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	validator, err := buildValidator(cfg)
	if err != nil {
		zap.S().Fatalw("Failed to initialize token validator", "impl", cfg.Auth.ValidatorImpl, "error", err)
	}

	// Report service client and export manager
	reportClient := reportgen.NewClient(cfg.ReportGen.BaseURL, cfg.ReportGen.Timeout)
	downloader := export.NewSpoolDownloader(reportClient, cfg.Export.SpoolDir)

	factory, closeProducer, err := buildNotifierFactory(cfg)
	if err != nil {
		zap.S().Fatalw("Failed to initialize notifier", "impl", cfg.NotifierImpl, "error", err)
	}
	if closeProducer != nil {
		defer closeProducer()
	}

	manager := export.NewManager(reportClient, reportClient, downloader, repos.exports,
		repos.children, factory, export.Config{
			PollInterval:    cfg.Export.PollInterval,
			MaxPollDuration: cfg.Export.MaxPollDuration,
		})

	// Core services
	tracking := usecases.NewTrackingService(repos.children, repos.events)
	stats := usecases.NewStatsService(repos.children, repos.events)
	schedules := usecases.NewScheduleService(repos.schedules, repos.children)

	var ready httpShell.ReadinessCheck
	if repos.db != nil {
		ready = repos.db.Ping
	}

	router := httpShell.SetupRoutes(tracking, stats, manager, schedules, validator, ready)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Metrics on the private port
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: metricsMux,
		}

		go func() {
			zap.S().Infow("Metrics server listening", "addr", metricsServer.Addr, "path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.S().Errorw("Metrics server error", "error", err)
			}
		}()
	}

	// Recurring export schedules
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	if cfg.Scheduler.Enabled {
		exportScheduler := scheduler.NewExportScheduler(schedules, manager, cfg.Scheduler.CheckInterval)
		go exportScheduler.Start(schedulerCtx)
	}

	go func() {
		zap.S().Infow("API server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalw("API server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.S().Info("Shutting down")

	// Stop feeding new work before tearing the pollers down.
	stopScheduler()
	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("API server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnw("Metrics server shutdown error", "error", err)
		}
	}

	zap.S().Info("Shutdown complete")
}

func buildRepositories(cfg *config.Config) (repositories, error) {
	switch cfg.Database.Type {
	case "memory":
		return repositories{
			children:  storage.NewMemoryChildRepository(),
			events:    storage.NewMemoryEventRepository(),
			exports:   storage.NewMemoryExportRepository(),
			schedules: storage.NewMemoryScheduleRepository(),
		}, nil

	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			children:  storage.NewSQLiteChildRepository(db),
			events:    storage.NewSQLiteEventRepository(db),
			exports:   storage.NewSQLiteExportRepository(db),
			schedules: storage.NewSQLiteScheduleRepository(db),
			db:        db,
		}, nil

	case "postgres":
		db, err := storage.OpenPostgres(cfg.Database)
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			children:  storage.NewPostgresChildRepository(db),
			events:    storage.NewPostgresEventRepository(db),
			exports:   storage.NewPostgresExportRepository(db),
			schedules: storage.NewPostgresScheduleRepository(db),
			db:        db,
		}, nil

	default:
		return repositories{}, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

func buildValidator(cfg *config.Config) (identity.TokenValidator, error) {
	switch cfg.Auth.ValidatorImpl {
	case "fake":
		return identity.NewFakeTokenValidator("fam-dev", "user-dev", "dev"), nil

	case "static":
		tokens, err := identity.ParseStaticTokens(cfg.Auth.Tokens)
		if err != nil {
			return nil, err
		}
		return identity.NewStaticTokenValidator(tokens), nil

	case "remote":
		return identity.NewRemoteTokenValidator(cfg.Auth.ServiceURL), nil

	default:
		return nil, fmt.Errorf("unsupported token validator: %s", cfg.Auth.ValidatorImpl)
	}
}

// buildNotifierFactory returns the per-job notifier factory and, for the
// Kafka implementation, a close function for the underlying producer.
func buildNotifierFactory(cfg *config.Config) (export.NotifierFactory, func(), error) {
	switch cfg.NotifierImpl {
	case "none":
		notifier := export.NewNullNotifier()
		return func(domain.ExportJob) export.Notifier { return notifier }, nil, nil

	case "log":
		// Manager defaults to the log notifier
		return nil, nil, nil

	case "kafka":
		producer, err := messaging.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		factory := func(job domain.ExportJob) export.Notifier {
			return messaging.NewKafkaNotifier(producer, job)
		}
		closeProducer := func() {
			if err := producer.Close(); err != nil {
				zap.S().Warnw("Failed to close Kafka producer", "error", err)
			}
		}
		return factory, closeProducer, nil

	default:
		return nil, nil, fmt.Errorf("unsupported notifier implementation: %s", cfg.NotifierImpl)
	}
}
