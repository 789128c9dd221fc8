package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"compras/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "fetches.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func outcome(id string, year int, status core.FetchStatus, started time.Time) core.FetchOutcome {
	return core.FetchOutcome{
		ID:        id,
		Year:      year,
		Source:    "published",
		Layout:    "wide",
		Status:    status,
		Rows:      42,
		Duration:  1500 * time.Millisecond,
		StartedAt: started,
	}
}

func TestRecordAndListFetches(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	records := []core.FetchOutcome{
		outcome("a", 2025, core.FetchOK, base),
		outcome("b", 2026, core.FetchOK, base.Add(time.Minute)),
		outcome("c", 2025, core.FetchFailed, base.Add(2*time.Minute)),
	}
	records[2].Error = "fetch published year 2025: connection refused"
	for _, o := range records {
		if err := repo.RecordFetch(ctx, o); err != nil {
			t.Fatalf("RecordFetch(%s): %v", o.ID, err)
		}
	}

	all, err := repo.ListFetches(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListFetches: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	y2025, err := repo.ListFetches(ctx, 2025, 10)
	if err != nil {
		t.Fatalf("ListFetches(2025): %v", err)
	}
	if len(y2025) != 2 {
		t.Fatalf("expected 2 fetches for 2025, got %d", len(y2025))
	}
	got := y2025[0]
	if got.Status != core.FetchFailed || got.Error == "" || got.Rows != 42 || got.Duration != 1500*time.Millisecond {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if !got.StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("started_at = %v", got.StartedAt)
	}

	limited, err := repo.ListFetches(ctx, 0, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %v %v", limited, err)
	}
}

func TestRecordFetchDuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	o := outcome("dup", 2025, core.FetchOK, time.Now())
	if err := repo.RecordFetch(ctx, o); err != nil {
		t.Fatalf("RecordFetch: %v", err)
	}
	if err := repo.RecordFetch(ctx, o); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestRecordFetchRejectsUnknownStatus(t *testing.T) {
	repo := newTestRepo(t)
	o := outcome("x", 2025, core.FetchStatus("pending"), time.Now())
	if err := repo.RecordFetch(context.Background(), o); err == nil {
		t.Fatal("expected check constraint violation")
	}
}

func TestPruneFetches(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = repo.RecordFetch(ctx, outcome("old", 2025, core.FetchOK, now.Add(-48*time.Hour)))
	_ = repo.RecordFetch(ctx, outcome("new", 2025, core.FetchOK, now))

	n, err := repo.PruneFetches(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneFetches: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned row, got %d", n)
	}
	left, _ := repo.ListFetches(ctx, 0, 0)
	if len(left) != 1 || left[0].ID != "new" {
		t.Errorf("unexpected remaining rows: %+v", left)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	if v, dirty, err := SchemaVersion(path); err != nil || v != 0 || dirty {
		t.Fatalf("fresh database: version=%d dirty=%v err=%v", v, dirty, err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%v", v, dirty)
	}
}
