package schema

import "compras/internal/core"

type wideResolver struct {
	cols  WideColumns
	table core.RawTable
	// first row index per (indicator, dimension) and per indicator alone;
	// document order wins on duplicates.
	byPair      map[[2]string]int
	byIndicator map[string]int
}

func newWideResolver(cols WideColumns, table core.RawTable) *wideResolver {
	r := &wideResolver{
		cols:        cols,
		table:       table,
		byPair:      make(map[[2]string]int),
		byIndicator: make(map[string]int),
	}
	for i := range table {
		ind := table.Cell(i, cols.Indicator)
		if ind == "" {
			continue
		}
		if _, seen := r.byIndicator[ind]; !seen {
			r.byIndicator[ind] = i
		}
		pair := [2]string{ind, table.Cell(i, cols.Dimension)}
		if _, seen := r.byPair[pair]; !seen {
			r.byPair[pair] = i
		}
	}
	return r
}

func (r *wideResolver) Resolve(key core.MetricKey, p core.Period) core.MetricValue {
	if !p.Valid() {
		return core.None()
	}
	row, ok := r.findRow(key)
	if !ok {
		return core.None()
	}
	return core.Clean(r.table.Cell(row, r.cols.FirstMonth+p.Index()))
}

func (r *wideResolver) Recognized() bool {
	for _, ind := range core.Indicators() {
		if _, ok := r.byIndicator[ind.Label()]; ok {
			return true
		}
	}
	return false
}

func (r *wideResolver) findRow(key core.MetricKey) (int, bool) {
	label := key.Indicator.Label()
	if key.Dimension.IsAny() {
		row, ok := r.byIndicator[label]
		return row, ok
	}
	row, ok := r.byPair[[2]string{label, key.Dimension.Label()}]
	return row, ok
}
