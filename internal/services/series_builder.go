package services

import (
	"fmt"

	"compras/internal/core"
	"compras/internal/schema"
)

// BuildSeries resolves every catalogue metric for each month of year.
//
// Purchases and savings only ever feed sums, so an absent cell becomes 0.
// SLA and payment-term metrics feed averages and stay absent, so that a
// missing month is skipped by the average instead of dragging it down.
func BuildSeries(table core.RawTable, layout schema.Layout, year int) (core.CanonicalSeries, error) {
	resolver, err := schema.New(layout, table, year)
	if err != nil {
		return core.CanonicalSeries{}, fmt.Errorf("build series: %w", err)
	}
	return buildWith(resolver, year), nil
}

func buildWith(r schema.Resolver, year int) core.CanonicalSeries {
	series := core.CanonicalSeries{Year: year}
	for _, p := range core.Periods() {
		rec := core.PeriodRecord{Period: p}
		for _, e := range core.Entities() {
			rec.Entities[e] = core.EntityMetrics{
				Purchases:     r.Resolve(core.PurchasesKey(e), p).OrZero(),
				Savings:       r.Resolve(core.SavingsKey(e), p).OrZero(),
				AttendanceSLA: r.Resolve(core.AttendanceSLAKey(e), p),
			}
		}
		rec.Categories = core.CategoryMetrics{
			DeliverySLAProductive:   r.Resolve(core.DeliverySLAProductiveKey, p),
			DeliverySLAUnproductive: r.Resolve(core.DeliverySLAUnproductiveKey, p),
			PaymentTermProductive:   r.Resolve(core.PaymentTermProductiveKey, p),
			PaymentTermUnproductive: r.Resolve(core.PaymentTermUnproductiveKey, p),
			PaymentTermOverall:      r.Resolve(core.PaymentTermOverallKey, p),
		}
		series.Records[p] = rec
	}
	return series
}
