package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"compras/internal/core"
	"compras/internal/services"
)

type fakeDashboard struct {
	series core.CanonicalSeries
	err    error
	calls  atomic.Int32
}

func (f *fakeDashboard) Years() []int   { return []int{2025, 2026} }
func (f *fakeDashboard) Source() string { return "fake" }

func (f *fakeDashboard) Series(ctx context.Context, year int) (core.CanonicalSeries, error) {
	f.calls.Add(1)
	if year != 2025 && year != 2026 {
		return core.CanonicalSeries{}, core.ErrUnknownYear
	}
	if f.err != nil {
		return core.CanonicalSeries{}, f.err
	}
	s := f.series
	s.Year = year
	return s, nil
}

func (f *fakeDashboard) Summary(ctx context.Context, year int, e core.Entity, rng core.PeriodRange) (core.SummaryView, error) {
	s, err := f.Series(ctx, year)
	if err != nil {
		return core.SummaryView{}, err
	}
	return services.Summarize(s, e, rng), nil
}

type fakeFetchLog struct {
	outcomes []core.FetchOutcome
	pingErr  error
	gotYear  int
	gotLimit int
}

func (f *fakeFetchLog) ListFetches(ctx context.Context, year, limit int) ([]core.FetchOutcome, error) {
	f.gotYear, f.gotLimit = year, limit
	return f.outcomes, nil
}

func (f *fakeFetchLog) Ping(ctx context.Context) error { return f.pingErr }

func testSeries() core.CanonicalSeries {
	var s core.CanonicalSeries
	for _, p := range core.Periods() {
		rec := core.PeriodRecord{Period: p}
		rec.Entities[core.EntityTotal] = core.EntityMetrics{
			Purchases:     21638.4,
			Savings:       1000,
			AttendanceSLA: core.Some(85),
		}
		rec.Entities[core.EntityBruna] = core.EntityMetrics{Purchases: 10}
		rec.Categories.PaymentTermOverall = core.Some(32)
		s.Records[p] = rec
	}
	return s
}

func newTestServer(t *testing.T, dash Dashboard, fetchLog FetchLog) *Server {
	t.Helper()
	srv := NewServer(Config{Addr: ":0", DefaultYear: 2026, RateLimitPerMinute: 1000}, dash, fetchLog, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{series: testSeries()}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
	if rr := do(t, srv, "/metrics"); !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Errorf("metrics body missing counters: %s", rr.Body.String())
	}
}

func TestReadyFailsWhenFetchLogDown(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, &fakeFetchLog{pingErr: errors.New("database is locked")})
	rr := do(t, srv, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if decode(t, rr)["status"] != "not_ready" {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestOptions(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, nil)
	rr := do(t, srv, "/api/options")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode(t, rr)
	if body["defaultYear"] != float64(2026) {
		t.Errorf("defaultYear = %v", body["defaultYear"])
	}
	entities, _ := body["entities"].([]any)
	if len(entities) != core.EntityCount || entities[0] != "Total" {
		t.Errorf("entities = %v", body["entities"])
	}
	months, _ := body["months"].([]any)
	if len(months) != 12 {
		t.Errorf("months = %v", body["months"])
	}
	if rr.Header().Get("Cache-Control") != "no-store" || rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing middleware headers: %v", rr.Header())
	}
}

func TestSummaryDefaultsAndDisplay(t *testing.T) {
	dash := &fakeDashboard{series: testSeries()}
	srv := newTestServer(t, dash, nil)

	rr := do(t, srv, "/api/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["year"] != float64(2026) || body["entity"] != "Total" {
		t.Errorf("defaults not applied: year=%v entity=%v", body["year"], body["entity"])
	}
	display, _ := body["display"].(map[string]any)
	if display["comprasTotal"] != "R$ 259.661" {
		t.Errorf("comprasTotal display = %v", display["comprasTotal"])
	}
	if display["slaAtendimentoMedia"] != "85.0%" {
		t.Errorf("sla display = %v", display["slaAtendimentoMedia"])
	}
	if display["pmpGeral"] != "32 dias" {
		t.Errorf("pmp display = %v", display["pmpGeral"])
	}
	if tl, _ := body["timeline"].([]any); len(tl) != 12 {
		t.Errorf("timeline length = %d", len(tl))
	}
}

func TestSummaryEntityAndRange(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{series: testSeries()}, nil)

	rr := do(t, srv, "/api/summary?year=2025&entity=bruna&from=Janeiro&to=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["comprasTotal"] != float64(30) {
		t.Errorf("comprasTotal = %v", body["comprasTotal"])
	}
	tl, _ := body["timeline"].([]any)
	if len(tl) != 3 {
		t.Fatalf("timeline length = %d", len(tl))
	}
	point := tl[0].(map[string]any)
	if _, ok := point["Bruna_compras"]; !ok {
		t.Errorf("expected Bruna fields, got %v", point)
	}
	if _, ok := point["compras"]; ok {
		t.Errorf("Total fields leaked into Bruna timeline: %v", point)
	}
}

func TestSummaryBadParameters(t *testing.T) {
	dash := &fakeDashboard{series: testSeries()}
	srv := newTestServer(t, dash, nil)

	for _, target := range []string{
		"/api/summary?year=abc",
		"/api/summary?entity=Maria",
		"/api/summary?from=5&to=2",
		"/api/summary?to=12",
		"/api/summary?from=marco",
	} {
		rr := do(t, srv, target)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
	}
	if n := dash.calls.Load(); n != 0 {
		t.Errorf("bad requests must not reach the dashboard, got %d calls", n)
	}
}

func TestSummaryUnknownYear(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{series: testSeries()}, nil)
	rr := do(t, srv, "/api/summary?year=1999")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSummaryDataUnavailable(t *testing.T) {
	cause := &core.FetchError{Year: 2026, Source: "fake", Err: errors.New("connection refused")}
	srv := newTestServer(t, &fakeDashboard{err: cause}, nil)

	for _, target := range []string{"/api/summary", "/api/series"} {
		rr := do(t, srv, target)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", target, rr.Code)
		}
		body := decode(t, rr)
		if body["status"] != "unavailable" {
			t.Errorf("%s: status = %v", target, body["status"])
		}
		if _, ok := body["comprasTotal"]; ok {
			t.Errorf("%s: unavailable response must not carry figures: %v", target, body)
		}
	}
}

func TestSummaryTimeout(t *testing.T) {
	for _, err := range []error{
		context.DeadlineExceeded,
		&core.FetchError{Year: 2026, Source: "fake", Err: context.DeadlineExceeded},
	} {
		srv := newTestServer(t, &fakeDashboard{err: err}, nil)
		rr := do(t, srv, "/api/summary")
		if rr.Code != http.StatusGatewayTimeout {
			t.Fatalf("%v: expected 504, got %d", err, rr.Code)
		}
	}
}

func TestSeries(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{series: testSeries()}, nil)
	rr := do(t, srv, "/api/series?year=2025")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode(t, rr)
	if body["year"] != float64(2025) {
		t.Errorf("year = %v", body["year"])
	}
	tl, _ := body["timeline"].([]any)
	if len(tl) != 12 {
		t.Fatalf("timeline length = %d", len(tl))
	}
	if _, ok := tl[0].(map[string]any)["Bruna_compras"]; !ok {
		t.Errorf("series must carry every entity: %v", tl[0])
	}
}

func TestFetches(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, nil)
	if rr := do(t, srv, "/api/fetches"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without fetch log, got %d", rr.Code)
	}

	log := &fakeFetchLog{outcomes: []core.FetchOutcome{{
		ID: "f1", Year: 2025, Source: "fake", Status: core.FetchOK, Rows: 12,
		StartedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}}
	srv = newTestServer(t, &fakeDashboard{}, log)

	rr := do(t, srv, "/api/fetches?year=2025&limit=9999")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if log.gotYear != 2025 || log.gotLimit != 500 {
		t.Errorf("filters passed as year=%d limit=%d", log.gotYear, log.gotLimit)
	}
	fetches, _ := decode(t, rr)["fetches"].([]any)
	if len(fetches) != 1 {
		t.Errorf("fetches = %v", fetches)
	}

	if rr := do(t, srv, "/api/fetches?limit=0"); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for limit=0, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/summary", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(Config{Addr: ":0", DefaultYear: 2026, RateLimitPerMinute: 2}, &fakeDashboard{}, nil, nil)
	defer srv.Shutdown(context.Background())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(t, srv, "/api/options")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if decode(t, last)["status"] != "rate_limited" {
		t.Errorf("unexpected body %s", last.Body.String())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := NewServer(Config{Addr: ":0"}, &fakeDashboard{}, nil, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
