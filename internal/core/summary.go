package core

import (
	"encoding/json"
	"time"
)

// EntityMetrics are the per-entity figures of one month. Purchases and
// Savings feed sums and are never absent; AttendanceSLA feeds averages.
type EntityMetrics struct {
	Purchases     float64
	Savings       float64
	AttendanceSLA MetricValue
}

// CategoryMetrics are entity-independent figures of one month, split by
// operational category (Produtivo / Improdutivo).
type CategoryMetrics struct {
	DeliverySLAProductive   MetricValue
	DeliverySLAUnproductive MetricValue
	PaymentTermProductive   MetricValue
	PaymentTermUnproductive MetricValue
	PaymentTermOverall      MetricValue
}

// PeriodRecord is one month of the canonical series.
type PeriodRecord struct {
	Period     Period
	Entities   [EntityCount]EntityMetrics
	Categories CategoryMetrics
}

// Entity returns the metrics of e. Invalid entities yield zero metrics.
func (r PeriodRecord) Entity(e Entity) EntityMetrics {
	if !e.Valid() {
		return EntityMetrics{}
	}
	return r.Entities[e]
}

// Project keeps only e's metrics plus the entity-independent ones.
func (r PeriodRecord) Project(e Entity) EntityPoint {
	return EntityPoint{
		Period:     r.Period,
		Entity:     e,
		Metrics:    r.Entity(e),
		Categories: r.Categories,
	}
}

// MarshalJSON flattens the record into presentation field names:
// "compras" for Total, "Ewerton_compras" for a buyer, and so on.
func (r PeriodRecord) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"month":      r.Period.Label(),
		"monthIndex": r.Period.Index(),
	}
	for _, e := range Entities() {
		putEntityFields(out, e, r.Entities[e])
	}
	putCategoryFields(out, r.Categories)
	return json.Marshal(out)
}

// EntityPoint is a PeriodRecord narrowed to a single entity.
type EntityPoint struct {
	Period     Period
	Entity     Entity
	Metrics    EntityMetrics
	Categories CategoryMetrics
}

func (p EntityPoint) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"month":      p.Period.Label(),
		"monthIndex": p.Period.Index(),
	}
	putEntityFields(out, p.Entity, p.Metrics)
	putCategoryFields(out, p.Categories)
	return json.Marshal(out)
}

func putEntityFields(out map[string]any, e Entity, m EntityMetrics) {
	p := e.FieldPrefix()
	out[p+"compras"] = m.Purchases
	out[p+"saving"] = m.Savings
	out[p+"slaAtendimento"] = m.AttendanceSLA
}

func putCategoryFields(out map[string]any, c CategoryMetrics) {
	out["slaEntregasProdutivo"] = c.DeliverySLAProductive
	out["slaEntregasImprodutivo"] = c.DeliverySLAUnproductive
	out["pmpProdutivo"] = c.PaymentTermProductive
	out["pmpImprodutivo"] = c.PaymentTermUnproductive
	out["pmpGeral"] = c.PaymentTermOverall
}

// CanonicalSeries is the full-year, layout-independent result of one fetch.
// The array type pins exactly one record per period, in period order.
type CanonicalSeries struct {
	Year      int                         `json:"year"`
	Source    string                      `json:"source"`
	FetchID   string                      `json:"fetchId,omitempty"`
	FetchedAt time.Time                   `json:"fetchedAt"`
	Records   [MonthsPerYear]PeriodRecord `json:"timeline"`
}

// SummaryView is a range- and entity-filtered reduction of a series.
type SummaryView struct {
	Year   int         `json:"year"`
	Entity Entity      `json:"entity"`
	Range  PeriodRange `json:"range"`

	PurchasesTotal float64 `json:"comprasTotal"`
	SavingsTotal   float64 `json:"savingTotal"`

	AttendanceSLA           float64 `json:"slaAtendimentoMedia"`
	DeliverySLAProductive   float64 `json:"slaEntregasProdutivo"`
	DeliverySLAUnproductive float64 `json:"slaEntregasImprodutivo"`
	PaymentTermProductive   float64 `json:"pmpProdutivo"`
	PaymentTermUnproductive float64 `json:"pmpImprodutivo"`
	PaymentTermOverall      float64 `json:"pmpGeral"`

	Timeline []EntityPoint `json:"timeline"`
}
