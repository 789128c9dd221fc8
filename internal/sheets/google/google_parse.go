package google

import (
	"fmt"
	"strings"

	"compras/internal/core"
)

// valuesToTable converts the API's row-major interface grid into a RawTable.
// Rows keep their own length; the API drops trailing empty cells.
func valuesToTable(values [][]interface{}) core.RawTable {
	table := make(core.RawTable, 0, len(values))
	for _, row := range values {
		table = append(table, toStrings(row))
	}
	return table
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
