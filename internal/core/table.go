package core

import "strings"

// RawTable is a grid of string cells as read from a delimited export.
// Rows may have different lengths.
type RawTable [][]string

// Cell returns the trimmed cell at (row, col), or "" when it does not exist.
func (t RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t) {
		return ""
	}
	r := t[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Width is the length of the longest row.
func (t RawTable) Width() int {
	w := 0
	for _, r := range t {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// IsBlank reports whether no row carries a non-empty cell.
func (t RawTable) IsBlank() bool {
	for _, r := range t {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				return false
			}
		}
	}
	return true
}
