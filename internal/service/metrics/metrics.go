package metrics

import (
	"context"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
	drepo "TrendLens/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trendlens",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of prediction endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "User-facing failures by endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records the latency of one endpoint call.
func Observe(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Fail counts a failure of kind for endpoint.
func Fail(endpoint, kind string) {
	EndpointErrors.WithLabelValues(endpoint, kind).Inc()
}

// Source records latency and outcome of every provider call.
type Source struct {
	next    drepo.MarketDataSource
	name    string
	metrics drepo.Metrics
}

func NewSource(next drepo.MarketDataSource, name string, metrics drepo.Metrics) *Source {
	return &Source{next: next, name: name, metrics: metrics}
}

func (s *Source) History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	start := time.Now()
	bars, err := s.next.History(ctx, ticker, from, to)
	s.metrics.RecordProviderCall(s.name, "history", time.Since(start).Seconds(), err)
	return bars, err
}

func (s *Source) Metadata(ctx context.Context, ticker string) (models.TickerMeta, error) {
	start := time.Now()
	meta, err := s.next.Metadata(ctx, ticker)
	s.metrics.RecordProviderCall(s.name, "metadata", time.Since(start).Seconds(), err)
	return meta, err
}

var _ drepo.MarketDataSource = (*Source)(nil)
