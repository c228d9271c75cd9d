package models

import "time"

// PriceBar is one trading day of OHLCV data for a ticker.
// Date is normalized to midnight UTC of the exchange-local trading day.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TickerMeta holds provider metadata for a ticker keyed by field name.
type TickerMeta map[string]interface{}

// Has reports whether field is present with a non-empty value.
func (m TickerMeta) Has(field string) bool {
	v, ok := m[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

// PredictorEvent is emitted whenever the predictor registry settles a ticker.
type PredictorEvent struct {
	Ticker    string    `json:"ticker"`
	Type      string    `json:"type"` // "built", "invalid", "unavailable"
	MinDate   time.Time `json:"min_date,omitempty"`
	MaxDate   time.Time `json:"max_date,omitempty"`
	Sequences int       `json:"sequences,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventBuilt       = "built"
	EventInvalid     = "invalid"
	EventUnavailable = "unavailable"
)
