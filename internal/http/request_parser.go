// Package http provides the JSON API over the dashboard service.
//
// This file implements parsing and validation of the dashboard selectors
// carried in query strings. Absent selectors take their defaults; malformed
// ones are reported so the handler can answer 400 instead of guessing.

package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"compras/internal/core"
	"compras/internal/storage"
)

// ErrBadParameter marks a query parameter that could not be understood.
var ErrBadParameter = errors.New("bad parameter")

// SummaryParams holds the selectors of a summary request.
type SummaryParams struct {
	Year   int
	Entity core.Entity
	Range  core.PeriodRange
}

// FetchParams holds the filters of a fetch log request.
type FetchParams struct {
	Year  int
	Limit int
}

// ParseYear reads "year", falling back to def when absent.
func ParseYear(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return def, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 {
		return 0, fmt.Errorf("%w: year %q is not a valid year", ErrBadParameter, v)
	}
	return y, nil
}

// ParseSummaryParams reads year, entity, from and to. The range defaults to
// the full year and either end may be given as an index (0-11) or a month
// label ("Março").
func ParseSummaryParams(query url.Values, defaultYear int) (SummaryParams, error) {
	year, err := ParseYear(query, defaultYear)
	if err != nil {
		return SummaryParams{}, err
	}

	entity := core.EntityTotal
	if v := strings.TrimSpace(query.Get("entity")); v != "" {
		entity, err = core.ParseEntity(v)
		if err != nil {
			return SummaryParams{}, fmt.Errorf("%w: %w", ErrBadParameter, err)
		}
	}

	full := core.FullYear()
	from, err := parsePeriod(query, "from", full.Start)
	if err != nil {
		return SummaryParams{}, err
	}
	to, err := parsePeriod(query, "to", full.End)
	if err != nil {
		return SummaryParams{}, err
	}
	rng, err := core.NewPeriodRange(int(from), int(to))
	if err != nil {
		return SummaryParams{}, fmt.Errorf("%w: %w", ErrBadParameter, err)
	}

	return SummaryParams{Year: year, Entity: entity, Range: rng}, nil
}

func parsePeriod(query url.Values, key string, def core.Period) (core.Period, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	if i, err := strconv.Atoi(v); err == nil {
		return core.Period(i), nil
	}
	p, err := core.ParsePeriod(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadParameter, key, err)
	}
	return p, nil
}

// ParseFetchParams reads the optional year filter (0 means every year) and
// the page size, clamped to the storage maximum.
func ParseFetchParams(query url.Values) (FetchParams, error) {
	year, err := ParseYear(query, 0)
	if err != nil {
		return FetchParams{}, err
	}

	limit := storage.DefaultListLimit
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return FetchParams{}, fmt.Errorf("%w: limit %q must be a positive integer", ErrBadParameter, v)
		}
		limit = min(limit, storage.MaxListLimit)
	}
	return FetchParams{Year: year, Limit: limit}, nil
}
