package usecase

import (
	"time"

	"TrendLens/internal/domain/models"
	"TrendLens/internal/services/features"
	"TrendLens/internal/services/reconcile"
)

// TickerPredictor holds everything built for one ticker. It is immutable once built.
type TickerPredictor struct {
	ticker    string
	history   *features.Labeled
	result    *reconcile.Result
	sequences int
	builtAt   time.Time
}

func NewTickerPredictor(ticker string, history *features.Labeled, result *reconcile.Result, sequences int, builtAt time.Time) *TickerPredictor {
	return &TickerPredictor{ticker: ticker, history: history, result: result, sequences: sequences, builtAt: builtAt}
}

func (p *TickerPredictor) Ticker() string { return p.ticker }

func (p *TickerPredictor) MinDate() time.Time { return p.result.MinDate }

func (p *TickerPredictor) MaxDate() time.Time { return p.result.MaxDate }

// Sequences is the number of windows the model scored.
func (p *TickerPredictor) Sequences() int { return p.sequences }

func (p *TickerPredictor) BuiltAt() time.Time { return p.builtAt }

// History returns the labeled feature table the predictor was built from.
func (p *TickerPredictor) History() *features.Labeled { return p.history }

func (p *TickerPredictor) Info() models.TickerInfo {
	return models.TickerInfo{Ticker: p.ticker, MinDate: p.MinDate(), MaxDate: p.MaxDate()}
}

// Predict returns results for the inclusive date range.
func (p *TickerPredictor) Predict(start, end time.Time) ([]models.PredictionResult, error) {
	return p.result.Predict(start, end)
}
