package http

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"compras/internal/core"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// formatBRL formats a Real amount without cents, e.g. "R$ 259.660".
func formatBRL(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-R$ " + brPrinter.Sprintf("%d", -n)
	}
	return "R$ " + brPrinter.Sprintf("%d", n)
}

// formatPercent formats a percentage with one decimal, e.g. "85.0%".
func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// formatDays formats a payment term, e.g. "32 dias".
func formatDays(v float64) string {
	return fmt.Sprintf("%.0f dias", v)
}

// SummaryDisplay carries the headline figures already formatted for a card.
type SummaryDisplay struct {
	PurchasesTotal          string `json:"comprasTotal"`
	SavingsTotal            string `json:"savingTotal"`
	AttendanceSLA           string `json:"slaAtendimentoMedia"`
	DeliverySLAProductive   string `json:"slaEntregasProdutivo"`
	DeliverySLAUnproductive string `json:"slaEntregasImprodutivo"`
	PaymentTermProductive   string `json:"pmpProdutivo"`
	PaymentTermUnproductive string `json:"pmpImprodutivo"`
	PaymentTermOverall      string `json:"pmpGeral"`
}

func newSummaryDisplay(v core.SummaryView) SummaryDisplay {
	return SummaryDisplay{
		PurchasesTotal:          formatBRL(v.PurchasesTotal),
		SavingsTotal:            formatBRL(v.SavingsTotal),
		AttendanceSLA:           formatPercent(v.AttendanceSLA),
		DeliverySLAProductive:   formatPercent(v.DeliverySLAProductive),
		DeliverySLAUnproductive: formatPercent(v.DeliverySLAUnproductive),
		PaymentTermProductive:   formatDays(v.PaymentTermProductive),
		PaymentTermUnproductive: formatDays(v.PaymentTermUnproductive),
		PaymentTermOverall:      formatDays(v.PaymentTermOverall),
	}
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Year   int    `json:"year,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, label string, err error) {
	writeJSON(w, status, errorResponse{Status: label, Error: err.Error()})
}
