package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MonthsPerYear is the length of every CanonicalSeries.
const MonthsPerYear = 12

type (
	// Period is a calendar month, 0 (Janeiro) through 11 (Dezembro).
	// It carries no year; the year is a separate selector.
	Period int

	// PeriodRange is an inclusive [Start, End] window over the period ordering.
	PeriodRange struct {
		Start Period `json:"from"`
		End   Period `json:"to"`
	}

	// Entity is the "who" of a metric: the aggregate Total or one buyer.
	Entity int
)

var monthLabels = [MonthsPerYear]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnknownPeriod = errors.New("unknown period")
	ErrInvalidRange  = errors.New("invalid period range")
)

// Periods returns the twelve periods in calendar order.
func Periods() []Period {
	out := make([]Period, MonthsPerYear)
	for i := range out {
		out[i] = Period(i)
	}
	return out
}

// ParsePeriod matches a month label exactly ("Março", not "marco").
func ParsePeriod(label string) (Period, error) {
	for i, l := range monthLabels {
		if l == label {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, label)
}

func (p Period) Valid() bool { return p >= 0 && p < MonthsPerYear }

func (p Period) Index() int { return int(p) }

// Label returns the Portuguese month name, or "" for an invalid period.
func (p Period) Label() string {
	if !p.Valid() {
		return ""
	}
	return monthLabels[p]
}

func (p Period) String() string { return p.Label() }

// FullYear covers Janeiro through Dezembro.
func FullYear() PeriodRange {
	return PeriodRange{Start: 0, End: MonthsPerYear - 1}
}

// NewPeriodRange validates both ends and their ordering.
func NewPeriodRange(start, end int) (PeriodRange, error) {
	r := PeriodRange{Start: Period(start), End: Period(end)}
	if err := r.Validate(); err != nil {
		return PeriodRange{}, err
	}
	return r, nil
}

func (r PeriodRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("%w: months must be between 0 and %d, got [%d, %d]", ErrInvalidRange, MonthsPerYear-1, r.Start, r.End)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

func (r PeriodRange) Contains(p Period) bool {
	return p >= r.Start && p <= r.End
}

const (
	EntityTotal Entity = iota
	EntityEwerton
	EntityLeonardo
	EntityLuiz
	EntityBruna
	EntityLucas

	entityCount
)

// EntityCount is the size of the closed entity set.
const EntityCount = int(entityCount)

var entityNames = [EntityCount]string{"Total", "Ewerton", "Leonardo", "Luiz", "Bruna", "Lucas"}

// Entities returns every entity, Total first, in selector order.
func Entities() []Entity {
	out := make([]Entity, EntityCount)
	for i := range out {
		out[i] = Entity(i)
	}
	return out
}

// ParseEntity resolves a label case-insensitively. Unknown labels are an error
// rather than a silent lookup miss.
func ParseEntity(s string) (Entity, error) {
	s = strings.TrimSpace(s)
	for i, name := range entityNames {
		if strings.EqualFold(name, s) {
			return Entity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, s)
}

func (e Entity) Valid() bool { return e >= 0 && e < entityCount }

func (e Entity) String() string {
	if !e.Valid() {
		return fmt.Sprintf("Entity(%d)", int(e))
	}
	return entityNames[e]
}

func (e Entity) IsTotal() bool { return e == EntityTotal }

// FieldPrefix is prepended to presentation field names: "" for Total,
// "<Name>_" for a buyer.
func (e Entity) FieldPrefix() string {
	if e.IsTotal() {
		return ""
	}
	return e.String() + "_"
}

// MarshalText lets entities appear as labels in JSON.
func (e Entity) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, int(e))
	}
	return []byte(e.String()), nil
}

func (e *Entity) UnmarshalText(b []byte) error {
	v, err := ParseEntity(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// FetchStatus is the outcome class of one fetch attempt.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// FetchOutcome describes one fetch attempt. It carries metadata only, never
// series values.
type FetchOutcome struct {
	ID        string        `json:"id"`
	Year      int           `json:"year"`
	Source    string        `json:"source"`
	Layout    string        `json:"layout"`
	Status    FetchStatus   `json:"status"`
	Rows      int           `json:"rows"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	StartedAt time.Time     `json:"started_at"`
}
