// Package schema maps the semi-structured spreadsheet layouts onto the
// metric catalogue. It is the only place that knows where a value lives in a
// RawTable; everything downstream asks a Resolver.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"compras/internal/core"
)

// Resolver finds the value of a catalogue metric for one month.
// Missing or unparseable data resolves to an absent value, never an error.
type Resolver interface {
	Resolve(key core.MetricKey, p core.Period) core.MetricValue
	// Recognized reports whether the table holds at least one catalogue row.
	Recognized() bool
}

// LayoutKind selects the resolver variant for a source.
type LayoutKind string

const (
	// LayoutWide has one row per indicator (optionally per dimension) and
	// twelve month columns.
	LayoutWide LayoutKind = "wide"
	// LayoutLong has one row per (year, month, metric, entity, value).
	LayoutLong LayoutKind = "long"
)

var ErrUnknownLayout = errors.New("unknown layout")

// ParseLayoutKind accepts "wide" or "long", case-insensitively.
func ParseLayoutKind(s string) (LayoutKind, error) {
	switch LayoutKind(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutWide:
		return LayoutWide, nil
	case LayoutLong:
		return LayoutLong, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

// WideColumns are 0-based column positions of the wide layout.
type WideColumns struct {
	Indicator  int
	Dimension  int
	FirstMonth int
}

// LongColumns are 0-based column positions of the long layout.
type LongColumns struct {
	Year   int
	Month  int
	Metric int
	Entity int
	Value  int
}

// Layout is the per-source layout configuration.
type Layout struct {
	Kind LayoutKind
	Wide WideColumns
	Long LongColumns
}

// DefaultWideColumns matches the published procurement sheet: indicator in
// B, dimension in C, Janeiro in E.
func DefaultWideColumns() WideColumns {
	return WideColumns{Indicator: 1, Dimension: 2, FirstMonth: 4}
}

func DefaultLongColumns() LongColumns {
	return LongColumns{Year: 0, Month: 1, Metric: 2, Entity: 3, Value: 4}
}

// WideLayout returns a wide layout with default columns.
func WideLayout() Layout {
	return Layout{Kind: LayoutWide, Wide: DefaultWideColumns(), Long: DefaultLongColumns()}
}

// LongLayout returns a long layout with default columns.
func LongLayout() Layout {
	return Layout{Kind: LayoutLong, Wide: DefaultWideColumns(), Long: DefaultLongColumns()}
}

// Validate checks the columns used by the selected kind.
func (l Layout) Validate() error {
	switch l.Kind {
	case LayoutWide:
		c := l.Wide
		if c.Indicator < 0 || c.Dimension < 0 || c.FirstMonth < 0 {
			return fmt.Errorf("wide layout: negative column in %+v", c)
		}
	case LayoutLong:
		c := l.Long
		if c.Year < 0 || c.Month < 0 || c.Metric < 0 || c.Entity < 0 || c.Value < 0 {
			return fmt.Errorf("long layout: negative column in %+v", c)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLayout, l.Kind)
	}
	return nil
}

// New builds the resolver variant selected by layout over table. The year is
// only consulted by the long layout; wide exports hold a single year.
func New(layout Layout, table core.RawTable, year int) (Resolver, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if layout.Kind == LayoutLong {
		return newLongResolver(layout.Long, table, year), nil
	}
	return newWideResolver(layout.Wide, table), nil
}
