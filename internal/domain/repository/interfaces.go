package repository

import (
	"context"
	"time"

	"TrendLens/internal/domain/models"
)

// MarketDataSource supplies daily bars and ticker metadata.
// A zero from or to means "unbounded" on that side.
type MarketDataSource interface {
	History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)
	Metadata(ctx context.Context, ticker string) (models.TickerMeta, error)
}

// Invalidator is implemented by sources that cache upstream data.
type Invalidator interface {
	Invalidate(ctx context.Context, ticker string) error
}

// EventPublisher announces predictor lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.PredictorEvent) error
	Close() error
}

type Metrics interface {
	RecordBuild(ticker string, seconds float64, err error)
	RecordValidation(result string)
	RecordProviderCall(source, op string, seconds float64, err error)
	RecordCache(layer string, hit bool)
	RecordSequences(ticker string, n int)
}
