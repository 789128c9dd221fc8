package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"compras/internal/amqp"
	"compras/internal/core"
	"compras/internal/services"
)

// SeriesProvider is the part of the dashboard service the worker drives.
type SeriesProvider interface {
	Years() []int
	Series(ctx context.Context, year int) (core.CanonicalSeries, error)
}

// Publisher announces refreshed series.
type Publisher interface {
	PublishSeriesRefreshed(ctx context.Context, msg *amqp.SeriesRefreshedMessage) error
}

// Pruner drops old fetch log entries.
type Pruner interface {
	PruneFetches(ctx context.Context, before time.Time) (int64, error)
}

// RefreshWorker periodically fetches every configured year so that source
// problems surface in logs and the fetch log before a user hits them.
type RefreshWorker struct {
	dashboard   SeriesProvider
	publisher   Publisher
	pruner      Pruner
	retention   time.Duration
	concurrency int
}

func NewRefreshWorker(dashboard SeriesProvider, publisher Publisher, concurrency int) *RefreshWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RefreshWorker{
		dashboard:   dashboard,
		publisher:   publisher,
		concurrency: concurrency,
	}
}

// WithPruner enables deletion of fetch log entries older than retention.
func (w *RefreshWorker) WithPruner(p Pruner, retention time.Duration) *RefreshWorker {
	w.pruner = p
	w.retention = retention
	return w
}

// RefreshAll fetches every year concurrently. Each year is independent: a
// failing year is logged and reported in the joined error while the others
// still complete and publish.
func (w *RefreshWorker) RefreshAll(ctx context.Context) error {
	years := w.dashboard.Years()

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, year := range years {
		g.Go(func() error {
			if err := w.refreshYear(gctx, year); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		slog.WarnContext(ctx, "Refresh finished with failures", "years", len(years), "failed", len(errs))
		return errors.Join(errs...)
	}
	slog.InfoContext(ctx, "Refresh finished", "years", len(years))
	return nil
}

func (w *RefreshWorker) refreshYear(ctx context.Context, year int) error {
	series, err := w.dashboard.Series(ctx, year)
	if err != nil {
		slog.ErrorContext(ctx, "Refresh failed", "year", year, "error", err)
		return fmt.Errorf("refresh %d: %w", year, err)
	}

	total := services.Summarize(series, core.EntityTotal, core.FullYear())
	slog.InfoContext(ctx, "Series refreshed",
		"year", year,
		"fetch_id", series.FetchID,
		"purchases_total", total.PurchasesTotal)

	if w.publisher == nil {
		return nil
	}
	if err := w.publisher.PublishSeriesRefreshed(ctx, amqp.NewSeriesRefreshedMessage(series, total)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish refresh event", "year", year, "error", err)
		return fmt.Errorf("publish %d: %w", year, err)
	}
	return nil
}

// Prune deletes fetch log entries past the retention window.
func (w *RefreshWorker) Prune(ctx context.Context) {
	if w.pruner == nil || w.retention <= 0 {
		return
	}
	n, err := w.pruner.PruneFetches(ctx, time.Now().Add(-w.retention))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to prune fetch log", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned fetch log", "deleted", n)
	}
}

// Run refreshes immediately and then on every tick until ctx ends. The fetch
// log is pruned once a day.
func (w *RefreshWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid refresh interval %v", interval)
	}

	_ = w.RefreshAll(ctx)
	w.Prune(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	pruneTicker := time.NewTicker(24 * time.Hour)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = w.RefreshAll(ctx)
		case <-pruneTicker.C:
			w.Prune(ctx)
		}
	}
}
