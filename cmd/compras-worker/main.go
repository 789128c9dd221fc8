package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"compras/internal/amqp"
	"compras/internal/cli"
	"compras/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "refresh every year once and exit")
	flag.Parse()

	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).Logger
	logger.Info("Starting compras-worker", "once", *once)

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

	// Refresh events are optional; without a broker the worker still
	// exercises the sources and keeps the fetch log current.
	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		dialCtx, dialCancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		dialCancel()
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without refresh events", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	w := worker.NewRefreshWorker(dashboard, publisher, cfg.RefreshConcurrency)
	if fetchLog != nil {
		w.WithPruner(fetchLog, cfg.FetchLogRetention)
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout*time.Duration(cfg.FetchRetries+2)*time.Duration(len(cfg.Years)))
		defer cancel()
		if err := w.RefreshAll(ctx); err != nil {
			logger.Error("Refresh failed", "error", err)
			os.Exit(1)
		}
		w.Prune(ctx)
		logger.Info("Refresh complete")
		return
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Refresh worker configured",
		"interval", cfg.RefreshInterval,
		"concurrency", cfg.RefreshConcurrency,
		"years", cfg.Years)
	if err := w.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Refresh worker stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
