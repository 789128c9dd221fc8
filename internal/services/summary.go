package services

import "compras/internal/core"

// Summarize reduces series to the months in rng for one entity.
//
// Purchases and savings are summed. Every averaged metric skips months that
// are absent or not strictly positive; a zero or negative reading is treated
// as "not measured yet" rather than as a low score. With nothing left to
// average the result is 0. The series is not modified.
func Summarize(series core.CanonicalSeries, entity core.Entity, rng core.PeriodRange) core.SummaryView {
	view := core.SummaryView{
		Year:     series.Year,
		Entity:   entity,
		Range:    rng,
		Timeline: make([]core.EntityPoint, 0, core.MonthsPerYear),
	}

	var (
		attendance   positiveMean
		deliveryProd positiveMean
		deliveryUnpr positiveMean
		termProd     positiveMean
		termUnpr     positiveMean
		termOverall  positiveMean
	)
	for _, rec := range series.Records {
		if !rng.Contains(rec.Period) {
			continue
		}
		m := rec.Entity(entity)
		view.PurchasesTotal += m.Purchases
		view.SavingsTotal += m.Savings

		attendance.add(m.AttendanceSLA)
		deliveryProd.add(rec.Categories.DeliverySLAProductive)
		deliveryUnpr.add(rec.Categories.DeliverySLAUnproductive)
		termProd.add(rec.Categories.PaymentTermProductive)
		termUnpr.add(rec.Categories.PaymentTermUnproductive)
		termOverall.add(rec.Categories.PaymentTermOverall)

		view.Timeline = append(view.Timeline, rec.Project(entity))
	}

	view.AttendanceSLA = attendance.value()
	view.DeliverySLAProductive = deliveryProd.value()
	view.DeliverySLAUnproductive = deliveryUnpr.value()
	view.PaymentTermProductive = termProd.value()
	view.PaymentTermUnproductive = termUnpr.value()
	view.PaymentTermOverall = termOverall.value()
	return view
}

type positiveMean struct {
	sum float64
	n   int
}

func (m *positiveMean) add(v core.MetricValue) {
	if f, ok := v.Get(); ok && f > 0 {
		m.sum += f
		m.n++
	}
}

func (m positiveMean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}
