package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"compras/internal/core"
	"compras/internal/schema"
	"compras/internal/sheets"
)

// FetchRecorder keeps an audit trail of fetch attempts.
type FetchRecorder interface {
	RecordFetch(ctx context.Context, outcome core.FetchOutcome) error
}

// DashboardService turns a year selector into a freshly built series.
// Nothing is retained between calls: every Series call fetches the export
// again, and concurrent calls for the same year share one in-flight fetch.
type DashboardService struct {
	source   sheets.TableSource
	layouts  map[int]schema.Layout
	recorder FetchRecorder
	now      func() time.Time
	group    singleflight.Group
}

type Option func(*DashboardService)

// WithRecorder records every fetch attempt through r.
func WithRecorder(r FetchRecorder) Option {
	return func(s *DashboardService) { s.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService wires a source to the per-year layouts. The keys of
// layouts are the supported years.
func NewDashboardService(source sheets.TableSource, layouts map[int]schema.Layout, opts ...Option) (*DashboardService, error) {
	if source == nil {
		return nil, errors.New("dashboard service: nil source")
	}
	if len(layouts) == 0 {
		return nil, errors.New("dashboard service: no years configured")
	}
	own := make(map[int]schema.Layout, len(layouts))
	for year, l := range layouts {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("dashboard service: year %d: %w", year, err)
		}
		own[year] = l
	}
	s := &DashboardService{
		source:  source,
		layouts: own,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Years returns the supported years in ascending order.
func (s *DashboardService) Years() []int {
	years := make([]int, 0, len(s.layouts))
	for y := range s.layouts {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Layout returns the layout configured for year.
func (s *DashboardService) Layout(year int) (schema.Layout, bool) {
	l, ok := s.layouts[year]
	return l, ok
}

// Source names the configured table source.
func (s *DashboardService) Source() string { return s.source.Name() }

// Series fetches and builds the canonical series for year.
//
// An unsupported year returns core.ErrUnknownYear. Any fetch or payload
// failure returns a *core.FetchError, which matches core.ErrDataUnavailable.
func (s *DashboardService) Series(ctx context.Context, year int) (core.CanonicalSeries, error) {
	layout, ok := s.layouts[year]
	if !ok {
		return core.CanonicalSeries{}, fmt.Errorf("%w: %d", core.ErrUnknownYear, year)
	}

	// The shared fetch must not die with whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(strconv.Itoa(year), func() (any, error) {
		return s.fetch(fetchCtx, year, layout)
	})

	select {
	case <-ctx.Done():
		return core.CanonicalSeries{}, &core.FetchError{Year: year, Source: s.source.Name(), Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return core.CanonicalSeries{}, res.Err
		}
		return res.Val.(core.CanonicalSeries), nil
	}
}

// Summary builds the series for year and reduces it for entity over rng.
func (s *DashboardService) Summary(ctx context.Context, year int, entity core.Entity, rng core.PeriodRange) (core.SummaryView, error) {
	if !entity.Valid() {
		return core.SummaryView{}, fmt.Errorf("%w: %d", core.ErrUnknownEntity, int(entity))
	}
	if err := rng.Validate(); err != nil {
		return core.SummaryView{}, err
	}
	series, err := s.Series(ctx, year)
	if err != nil {
		return core.SummaryView{}, err
	}
	return Summarize(series, entity, rng), nil
}

func (s *DashboardService) fetch(ctx context.Context, year int, layout schema.Layout) (core.CanonicalSeries, error) {
	started := s.now()
	outcome := core.FetchOutcome{
		ID:        uuid.NewString(),
		Year:      year,
		Source:    s.source.Name(),
		Layout:    string(layout.Kind),
		StartedAt: started,
	}

	table, err := s.source.FetchTable(ctx, year)
	if err == nil && table.IsBlank() {
		err = fmt.Errorf("%w: export has no data rows", core.ErrMalformedPayload)
	}
	var series core.CanonicalSeries
	if err == nil {
		series, err = buildRecognized(table, layout, year)
	}
	outcome.Rows = len(table)
	outcome.Duration = s.now().Sub(started)

	if err != nil {
		outcome.Status = core.FetchFailed
		outcome.Error = err.Error()
		s.record(ctx, outcome)
		slog.WarnContext(ctx, "Fetch failed",
			"year", year,
			"source", outcome.Source,
			"fetch_id", outcome.ID,
			"error", err)
		return core.CanonicalSeries{}, &core.FetchError{Year: year, Source: outcome.Source, Err: err}
	}

	series.Source = outcome.Source
	series.FetchID = outcome.ID
	series.FetchedAt = started
	outcome.Status = core.FetchOK
	s.record(ctx, outcome)
	slog.InfoContext(ctx, "Series built",
		"year", year,
		"source", outcome.Source,
		"layout", outcome.Layout,
		"rows", outcome.Rows,
		"fetch_id", outcome.ID,
		"duration_ms", outcome.Duration.Milliseconds())
	return series, nil
}

func (s *DashboardService) record(ctx context.Context, outcome core.FetchOutcome) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordFetch(ctx, outcome); err != nil {
		slog.ErrorContext(ctx, "Failed to record fetch", "fetch_id", outcome.ID, "year", outcome.Year, "error", err)
	}
}

// buildRecognized refuses a table without a single catalogue row. Such a
// payload is not this export (an error page, another tab, moved columns) and
// would otherwise become a series of zeros.
func buildRecognized(table core.RawTable, layout schema.Layout, year int) (core.CanonicalSeries, error) {
	resolver, err := schema.New(layout, table, year)
	if err != nil {
		return core.CanonicalSeries{}, fmt.Errorf("build series: %w", err)
	}
	if !resolver.Recognized() {
		return core.CanonicalSeries{}, fmt.Errorf("%w: no %s layout indicator rows for %d", core.ErrMalformedPayload, layout.Kind, year)
	}
	return buildWith(resolver, year), nil
}
