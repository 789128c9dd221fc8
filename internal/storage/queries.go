package storage

import (
	"context"
	"time"
)

type FetchLog struct {
	ID         string
	Year       int64
	Source     string
	Layout     string
	Status     string
	RowCount   int64
	Error      string
	DurationMs int64
	StartedAt  time.Time
}

const insertFetchLog = `
INSERT INTO fetch_log (id, year, source, layout, status, row_count, error, duration_ms, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertFetchLogParams struct {
	ID         string
	Year       int64
	Source     string
	Layout     string
	Status     string
	RowCount   int64
	Error      string
	DurationMs int64
	StartedAt  time.Time
}

func (q *Queries) InsertFetchLog(ctx context.Context, arg InsertFetchLogParams) error {
	_, err := q.db.ExecContext(ctx, insertFetchLog,
		arg.ID,
		arg.Year,
		arg.Source,
		arg.Layout,
		arg.Status,
		arg.RowCount,
		arg.Error,
		arg.DurationMs,
		arg.StartedAt,
	)
	return err
}

const listFetchLogs = `
SELECT id, year, source, layout, status, row_count, error, duration_ms, started_at
FROM fetch_log
ORDER BY started_at DESC, id
LIMIT ?
`

func (q *Queries) ListFetchLogs(ctx context.Context, limit int64) ([]FetchLog, error) {
	rows, err := q.db.QueryContext(ctx, listFetchLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFetchLogs(rows)
}

const listFetchLogsByYear = `
SELECT id, year, source, layout, status, row_count, error, duration_ms, started_at
FROM fetch_log
WHERE year = ?
ORDER BY started_at DESC, id
LIMIT ?
`

type ListFetchLogsByYearParams struct {
	Year  int64
	Limit int64
}

func (q *Queries) ListFetchLogsByYear(ctx context.Context, arg ListFetchLogsByYearParams) ([]FetchLog, error) {
	rows, err := q.db.QueryContext(ctx, listFetchLogsByYear, arg.Year, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFetchLogs(rows)
}

const deleteFetchLogsBefore = `
DELETE FROM fetch_log WHERE started_at < ?
`

func (q *Queries) DeleteFetchLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteFetchLogsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

func scanFetchLogs(rows rowScanner) ([]FetchLog, error) {
	var items []FetchLog
	for rows.Next() {
		var i FetchLog
		if err := rows.Scan(
			&i.ID,
			&i.Year,
			&i.Source,
			&i.Layout,
			&i.Status,
			&i.RowCount,
			&i.Error,
			&i.DurationMs,
			&i.StartedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
