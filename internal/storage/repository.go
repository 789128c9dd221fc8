package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"compras/internal/core"

	_ "modernc.org/sqlite"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// SQLiteRepository keeps the audit trail of fetch attempts. It never stores
// series values.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// Ping checks that the database is still reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordFetch implements services.FetchRecorder
func (r *SQLiteRepository) RecordFetch(ctx context.Context, o core.FetchOutcome) error {
	err := r.queries.InsertFetchLog(ctx, InsertFetchLogParams{
		ID:         o.ID,
		Year:       int64(o.Year),
		Source:     o.Source,
		Layout:     o.Layout,
		Status:     string(o.Status),
		RowCount:   int64(o.Rows),
		Error:      o.Error,
		DurationMs: o.Duration.Milliseconds(),
		StartedAt:  o.StartedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert fetch log: %w", err)
	}

	slog.DebugContext(ctx, "Fetch recorded",
		"fetch_id", o.ID,
		"year", o.Year,
		"status", o.Status)
	return nil
}

// ListFetches returns the newest attempts first. Year 0 lists every year; a
// non-positive limit falls back to DefaultListLimit.
func (r *SQLiteRepository) ListFetches(ctx context.Context, year int, limit int) ([]core.FetchOutcome, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	var (
		rows []FetchLog
		err  error
	)
	if year == 0 {
		rows, err = r.queries.ListFetchLogs(ctx, int64(limit))
	} else {
		rows, err = r.queries.ListFetchLogsByYear(ctx, ListFetchLogsByYearParams{
			Year:  int64(year),
			Limit: int64(limit),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("list fetch logs: %w", err)
	}

	out := make([]core.FetchOutcome, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.FetchOutcome{
			ID:        row.ID,
			Year:      int(row.Year),
			Source:    row.Source,
			Layout:    row.Layout,
			Status:    core.FetchStatus(row.Status),
			Rows:      int(row.RowCount),
			Error:     row.Error,
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
			StartedAt: row.StartedAt,
		})
	}
	return out, nil
}

// PruneFetches deletes attempts that started before the cutoff.
func (r *SQLiteRepository) PruneFetches(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.queries.DeleteFetchLogsBefore(ctx, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete fetch logs: %w", err)
	}
	return n, nil
}
