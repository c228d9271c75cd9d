package models

// Requests for prediction HTTP endpoints. Defined in domain for consistency and reuse.

type TickerRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,max=32"`
}

// PerformanceRequest carries unix-second timestamps as raw strings; parsing happens in the handler.
type PerformanceRequest struct {
	Ticker    string `param:"ticker" json:"ticker" validate:"required,max=32"`
	StartDate string `query:"startDate" json:"startDate" validate:"required,numeric"`
	EndDate   string `query:"endDate" json:"endDate" validate:"required,numeric"`
}
