package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"compras/internal/cli"
	apphttp "compras/internal/http"
)

func main() {
	cli.LoadEnvFile()

	appLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger := appLogger.Logger
	cfg := cli.LoadAndValidateConfig(logger)

	fetchLog := cli.InitFetchLog(logger, cfg.SQLiteDBPath)
	if fetchLog != nil {
		defer fetchLog.Close()
	}

	dashboard, cleanup, err := cli.BuildDashboard(context.Background(), logger, cfg, fetchLog)
	if err != nil {
		logger.Error("Failed to initialize dashboard", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()

	// A fetch may retry; leave room for every attempt.
	requestTimeout := cfg.FetchTimeout * time.Duration(cfg.FetchRetries+2)

	var fl apphttp.FetchLog
	if fetchLog != nil {
		fl = fetchLog
	}
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		DefaultYear:        cfg.DefaultYear,
		RequestTimeout:     requestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigin:      cfg.CORSAllowedOrigin,
	}, dashboard, fl, appLogger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting compras server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"years", cfg.Years,
		"default_year", cfg.DefaultYear)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
