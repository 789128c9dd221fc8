package schema

import (
	"strconv"
	"strings"

	"compras/internal/core"
)

type longResolver struct {
	cols  LongColumns
	table core.RawTable
	// row indices of the requested year, grouped by month, in document order
	byMonth [core.MonthsPerYear][]int
}

func newLongResolver(cols LongColumns, table core.RawTable, year int) *longResolver {
	r := &longResolver{cols: cols, table: table}
	y := strconv.Itoa(year)
	for i := range table {
		if table.Cell(i, cols.Year) != y {
			continue
		}
		p, err := core.ParsePeriod(table.Cell(i, cols.Month))
		if err != nil {
			continue
		}
		r.byMonth[p] = append(r.byMonth[p], i)
	}
	return r
}

func (r *longResolver) Resolve(key core.MetricKey, p core.Period) core.MetricValue {
	if !p.Valid() {
		return core.None()
	}
	for _, row := range r.byMonth[p] {
		if !strings.EqualFold(r.table.Cell(row, r.cols.Metric), key.Indicator.Label()) {
			continue
		}
		if !key.Dimension.IsAny() && !strings.EqualFold(r.table.Cell(row, r.cols.Entity), key.Dimension.Label()) {
			continue
		}
		return core.Clean(r.table.Cell(row, r.cols.Value))
	}
	return core.None()
}

func (r *longResolver) Recognized() bool {
	for _, rows := range r.byMonth {
		for _, row := range rows {
			metric := r.table.Cell(row, r.cols.Metric)
			for _, ind := range core.Indicators() {
				if strings.EqualFold(metric, ind.Label()) {
					return true
				}
			}
		}
	}
	return false
}
