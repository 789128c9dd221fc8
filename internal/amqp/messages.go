package amqp

import (
	"encoding/json"
	"time"

	"compras/internal/core"
)

// SeriesRefreshedMessage announces that a year's export was fetched and
// built successfully. It carries headline totals only; consumers that need
// the full series call the HTTP API.
type SeriesRefreshedMessage struct {
	FetchID        string    `json:"fetch_id"`
	Year           int       `json:"year"`
	Source         string    `json:"source"`
	PurchasesTotal float64   `json:"purchases_total"`
	SavingsTotal   float64   `json:"savings_total"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewSeriesRefreshedMessage builds the message from a series and its
// full-year Total summary.
func NewSeriesRefreshedMessage(series core.CanonicalSeries, total core.SummaryView) *SeriesRefreshedMessage {
	return &SeriesRefreshedMessage{
		FetchID:        series.FetchID,
		Year:           series.Year,
		Source:         series.Source,
		PurchasesTotal: total.PurchasesTotal,
		SavingsTotal:   total.SavingsTotal,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SeriesRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SeriesRefreshedMessageFromJSON creates a message from JSON bytes
func SeriesRefreshedMessageFromJSON(data []byte) (*SeriesRefreshedMessage, error) {
	var msg SeriesRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
