// Package cli provides common CLI initialization utilities.
// It consolidates the bootstrap shared by cmd/compras and cmd/compras-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"compras/internal/backend"
	"compras/internal/config"
	applog "compras/internal/log"
	"compras/internal/services"
	"compras/internal/storage"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and sets
// it as the default logger. Unknown levels fall back to info with a warning.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitFetchLog opens the fetch log at dbPath. An empty path disables the log
// and returns nil. Exits the process when the database cannot be opened.
func InitFetchLog(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	if dbPath == "" {
		logger.Info("Fetch log disabled - no SQLITE_DB_PATH provided")
		return nil
	}
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize fetch log", "error", err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("Fetch log initialized", "path", dbPath)
	return repo
}

// BuildDashboard creates the configured table source and the dashboard
// service on top of it. fetchLog may be nil. The returned cleanup releases
// the source and is never nil.
func BuildDashboard(ctx context.Context, logger *slog.Logger, cfg *config.Config, fetchLog *storage.SQLiteRepository) (*services.DashboardService, backend.CleanupFunc, error) {
	noop := func() error { return nil }

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("backend config: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, noop, fmt.Errorf("create backend %s: %w", bcfg.Type, err)
	}
	cleanup := result.Cleanup
	if cleanup == nil {
		cleanup = noop
	}

	layouts, err := cfg.Layouts()
	if err != nil {
		_ = cleanup()
		return nil, noop, fmt.Errorf("layouts: %w", err)
	}

	var opts []services.Option
	if fetchLog != nil {
		opts = append(opts, services.WithRecorder(fetchLog))
	}
	svc, err := services.NewDashboardService(result.Source, layouts, opts...)
	if err != nil {
		_ = cleanup()
		return nil, noop, err
	}

	logger.Info("Dashboard initialized",
		applog.FieldSource, result.Source.Name(),
		"years", svc.Years(),
		"fetch_log", fetchLog != nil)
	return svc, cleanup, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
