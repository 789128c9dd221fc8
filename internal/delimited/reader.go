// Package delimited splits spreadsheet text exports into a RawTable.
//
// The reader is deliberately lenient: a quote character only toggles an
// "inside quotes" state for the rest of the line, so a delimiter between
// quotes does not split the cell. There are no multi-line fields and no
// escaped quotes; a doubled quote is simply two toggles.
package delimited

import (
	"strings"

	"compras/internal/core"
)

// Dialect selects the delimiter and quote characters.
type Dialect struct {
	Delimiter rune
	Quote     rune
}

// DefaultDialect matches the "publish to web" CSV export.
func DefaultDialect() Dialect {
	return Dialect{Delimiter: ',', Quote: '"'}
}

// Parse reads text with the default dialect.
func Parse(text string) core.RawTable {
	return ParseWith(text, DefaultDialect())
}

// ParseWith reads text line by line. A trailing newline does not produce an
// extra row, and rows keep whatever length the line had.
func ParseWith(text string, d Dialect) core.RawTable {
	if d.Delimiter == 0 {
		d.Delimiter = ','
	}
	if d.Quote == 0 {
		d.Quote = '"'
	}

	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		lines = lines[:n-1]
	}

	table := make(core.RawTable, 0, len(lines))
	for _, line := range lines {
		table = append(table, splitLine(line, d))
	}
	return table
}

func splitLine(line string, d Dialect) []string {
	var (
		cells    []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == d.Quote:
			inQuotes = !inQuotes
		case r == d.Delimiter && !inQuotes:
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(cells, strings.TrimSpace(current.String()))
}
