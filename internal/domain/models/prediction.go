package models

import "time"

// PredictionResult is one public row of a backtest series.
// Change, Implied and the running totals are percentages.
type PredictionResult struct {
	Date         string  `json:"date"`
	Target       bool    `json:"target"`
	Prediction   bool    `json:"prediction"`
	Change       float64 `json:"change"`
	Implied      float64 `json:"implied"`
	ChangeTotal  float64 `json:"changeTotal"`
	ImpliedTotal float64 `json:"impliedTotal"`
}

// TickerInfo describes the date range a predictor can serve.
type TickerInfo struct {
	Ticker  string
	MinDate time.Time
	MaxDate time.Time
}
