// Package core holds the procurement domain model.
//
// This file contains MetricValue and the pt-BR numeric normalizer that turns
// spreadsheet cells such as "R$ 1.200,00" or "#N/A" into optional numbers.
package core

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MetricValue is an optional quantity. Absence is distinct from zero.
type MetricValue struct {
	v  float64
	ok bool
}

// Some wraps a present value.
func Some(v float64) MetricValue { return MetricValue{v: v, ok: true} }

// None is the absent value.
func None() MetricValue { return MetricValue{} }

// Get returns the value and whether it is present.
func (m MetricValue) Get() (float64, bool) { return m.v, m.ok }

func (m MetricValue) Present() bool { return m.ok }

// OrZero coerces absence to 0, for metrics that only feed sums.
func (m MetricValue) OrZero() float64 {
	if !m.ok {
		return 0
	}
	return m.v
}

func (m MetricValue) String() string {
	if !m.ok {
		return "<none>"
	}
	return strconv.FormatFloat(m.v, 'f', -1, 64)
}

// MarshalJSON encodes absence as null.
func (m MetricValue) MarshalJSON() ([]byte, error) {
	if !m.ok {
		return []byte("null"), nil
	}
	return json.Marshal(m.v)
}

func (m *MetricValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Some(f)
	return nil
}

const currencyToken = "R$"

// numericPrefix is the leading decimal number of a cell, so units after the
// figure ("30 dias", "85.5%") are ignored. Hex and other Go-only forms never
// match.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// Clean normalizes a pt-BR formatted cell into a MetricValue.
//
// Empty cells, a lone "-" and anything carrying a "#" marker (#N/A, #DIV/0!)
// are absent. The "R$" token is stripped, every "." is dropped as a thousands
// separator and the first "," becomes the decimal point. The leading number
// is kept and any trailing text discarded. Cells that do not start with a
// number are absent; zero and negatives are kept.
//
// Examples:
//
//	Clean("259.660,25")  -> 259660.25
//	Clean("R$ 1.200,00") -> 1200
//	Clean("-R$ 35,10")   -> -35.1
//	Clean("92,5%")       -> 92.5
//	Clean("30 dias")     -> 30
//	Clean("#N/A")        -> absent
func Clean(cell string) MetricValue {
	s := strings.TrimSpace(cell)
	if s == "" || s == "-" || strings.Contains(s, "#") {
		return None()
	}

	neg := false
	if strings.HasPrefix(s, "-") && strings.Contains(s, currencyToken) {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, currencyToken))

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	num := numericPrefix.FindString(s)
	if num == "" {
		return None()
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return None()
	}
	if neg {
		f = -f
	}
	return Some(f)
}
