package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"compras/internal/core"
	applog "compras/internal/log"
)

type monthOption struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Years       []int         `json:"years"`
	DefaultYear int           `json:"defaultYear"`
	Entities    []core.Entity `json:"entities"`
	Months      []monthOption `json:"months"`
	Source      string        `json:"source"`
}

type summaryResponse struct {
	core.SummaryView
	Source  string         `json:"source"`
	Display SummaryDisplay `json:"display"`
}

type fetchesResponse struct {
	Year    int                 `json:"year,omitempty"`
	Fetches []core.FetchOutcome `json:"fetches"`
}

// handleOptions lists the selector values the dashboard offers.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	months := make([]monthOption, 0, core.MonthsPerYear)
	for _, p := range core.Periods() {
		months = append(months, monthOption{Index: p.Index(), Label: p.Label()})
	}
	writeJSON(w, http.StatusOK, optionsResponse{
		Years:       s.dashboard.Years(),
		DefaultYear: s.defaultYear,
		Entities:    core.Entities(),
		Months:      months,
		Source:      s.dashboard.Source(),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), s.defaultYear)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	series, err := s.dashboard.Series(ctx, year)
	if err != nil {
		s.writeServiceError(w, r, year, err)
		return
	}
	s.appMetrics.served(true)
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSummaryParams(r.URL.Query(), s.defaultYear)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	view, err := s.dashboard.Summary(ctx, params.Year, params.Entity, params.Range)
	if err != nil {
		s.writeServiceError(w, r, params.Year, err)
		return
	}

	s.appMetrics.served(false)
	s.structured.LogSummaryServed(r.Context(), params.Year, params.Entity.String(),
		params.Range.Start.Index(), params.Range.End.Index(), s.dashboard.Source())

	writeJSON(w, http.StatusOK, summaryResponse{
		SummaryView: view,
		Source:      s.dashboard.Source(),
		Display:     newSummaryDisplay(view),
	})
}

func (s *Server) handleFetches(w http.ResponseWriter, r *http.Request) {
	if s.fetchLog == nil {
		writeError(w, http.StatusNotFound, "not_found", errors.New("fetch log is not configured"))
		return
	}
	params, err := ParseFetchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	fetches, err := s.fetchLog.ListFetches(r.Context(), params.Year, params.Limit)
	if err != nil {
		s.structured.LogError(r.Context(), "Failed to list fetches", err,
			applog.ComponentStorage, applog.OpList, nil)
		writeError(w, http.StatusInternalServerError, "error", errors.New("could not read fetch log"))
		return
	}
	if fetches == nil {
		fetches = []core.FetchOutcome{}
	}
	writeJSON(w, http.StatusOK, fetchesResponse{Year: params.Year, Fetches: fetches})
}

// writeServiceError maps dashboard errors onto status codes. Data that cannot
// be obtained is reported as unavailable, never as zero figures.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, year int, err error) {
	logger := applog.FromContext(r.Context())

	switch {
	case errors.Is(err, core.ErrUnknownYear):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, core.ErrUnknownEntity), errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, context.DeadlineExceeded):
		atomic.AddInt64(&s.appMetrics.unavailableTotal, 1)
		logger.WarnContext(r.Context(), "Request timed out", applog.FieldYear, year)
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Status: "unavailable", Error: "timed out waiting for the export", Year: year})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		logger.DebugContext(r.Context(), "Request cancelled", applog.FieldYear, year)
	case errors.Is(err, core.ErrDataUnavailable):
		atomic.AddInt64(&s.appMetrics.unavailableTotal, 1)
		logger.WarnContext(r.Context(), "Data unavailable", applog.FieldYear, year, applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "unavailable", Error: err.Error(), Year: year})
	default:
		logger.ErrorContext(r.Context(), "Dashboard error", applog.FieldYear, year, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "error", errors.New("internal error"))
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether the dependencies needed to serve are in place.
// The export itself is not fetched: readiness must not depend on a remote
// spreadsheet being up.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.dashboard == nil || len(s.dashboard.Years()) == 0 {
		checks["dashboard"] = "failed: no years configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dashboard"] = map[string]any{
			"status": "ok",
			"source": s.dashboard.Source(),
			"years":  s.dashboard.Years(),
		}
	}

	if s.fetchLog == nil {
		checks["fetch_log"] = "not_configured"
	} else if err := s.fetchLog.Ping(ctx); err != nil {
		checks["fetch_log"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["fetch_log"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("summaries_served_total", "Summaries returned to clients", "counter", atomic.LoadInt64(&s.appMetrics.summariesServed))
	metric("series_served_total", "Full series returned to clients", "counter", atomic.LoadInt64(&s.appMetrics.seriesServed))
	metric("data_unavailable_total", "Requests answered without data", "counter", atomic.LoadInt64(&s.appMetrics.unavailableTotal))
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Requests refused by the security filter", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}
