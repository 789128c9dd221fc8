package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compras/internal/amqp"
	"compras/internal/core"
)

type fakeDashboard struct {
	years    []int
	failYear int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeDashboard) Years() []int { return f.years }

func (f *fakeDashboard) Series(ctx context.Context, year int) (core.CanonicalSeries, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if year == f.failYear {
		return core.CanonicalSeries{}, &core.FetchError{Year: year, Source: "fake", Err: errors.New("boom")}
	}
	s := core.CanonicalSeries{Year: year, Source: "fake", FetchID: "id"}
	for _, p := range core.Periods() {
		s.Records[p].Period = p
		s.Records[p].Entities[core.EntityTotal].Purchases = 10
	}
	return s, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.SeriesRefreshedMessage
	err  error
}

func (p *fakePublisher) PublishSeriesRefreshed(ctx context.Context, msg *amqp.SeriesRefreshedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakePruner struct {
	calls  atomic.Int32
	before time.Time
}

func (p *fakePruner) PruneFetches(ctx context.Context, before time.Time) (int64, error) {
	p.calls.Add(1)
	p.before = before
	return 3, nil
}

func TestRefreshAllPublishesEveryYear(t *testing.T) {
	dash := &fakeDashboard{years: []int{2024, 2025, 2026}}
	pub := &fakePublisher{}
	w := NewRefreshWorker(dash, pub, 2)

	if err := w.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if len(pub.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(pub.msgs))
	}
	for _, m := range pub.msgs {
		if m.PurchasesTotal != 120 {
			t.Errorf("year %d: expected purchases total 120, got %v", m.Year, m.PurchasesTotal)
		}
	}
	if peak := dash.maxSeen.Load(); peak > 2 {
		t.Errorf("concurrency limit exceeded: %d", peak)
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	dash := &fakeDashboard{years: []int{2024, 2025, 2026}, failYear: 2025}
	pub := &fakePublisher{}
	w := NewRefreshWorker(dash, pub, 3)

	err := w.RefreshAll(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, core.ErrDataUnavailable) {
		t.Errorf("expected data unavailable in chain, got %v", err)
	}
	if len(pub.msgs) != 2 {
		t.Errorf("healthy years should still publish, got %d messages", len(pub.msgs))
	}
}

func TestRefreshAllWithoutPublisher(t *testing.T) {
	w := NewRefreshWorker(&fakeDashboard{years: []int{2025}}, nil, 0)
	if err := w.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
}

func TestRefreshAllPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	w := NewRefreshWorker(&fakeDashboard{years: []int{2025}}, pub, 1)
	if err := w.RefreshAll(context.Background()); !errors.Is(err, amqp.ErrCircuitOpen) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	pr := &fakePruner{}
	w := NewRefreshWorker(&fakeDashboard{}, nil, 1).WithPruner(pr, 24*time.Hour)

	w.Prune(context.Background())
	if pr.calls.Load() != 1 {
		t.Fatalf("expected one prune call")
	}
	if d := time.Since(pr.before); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("unexpected cutoff %v", pr.before)
	}

	NewRefreshWorker(&fakeDashboard{}, nil, 1).Prune(context.Background())
}

func TestRunStopsOnCancel(t *testing.T) {
	dash := &fakeDashboard{years: []int{2025}}
	pub := &fakePublisher{}
	w := NewRefreshWorker(dash, pub, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	err := w.Run(ctx, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.msgs) < 2 {
		t.Errorf("expected the initial refresh plus ticks, got %d", len(pub.msgs))
	}

	if err := w.Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero interval")
	}
}
