package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	builds        *prometheus.CounterVec
	buildLatency  *prometheus.HistogramVec
	validations   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	providerLat   *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	sequences     *prometheus.GaugeVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		builds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlens_predictor_builds_total",
				Help: "Predictor pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		buildLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendlens_predictor_build_duration_seconds",
				Help:    "Duration of predictor pipeline runs in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"outcome"},
		),
		validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlens_ticker_validations_total",
				Help: "Ticker metadata validations by result",
			},
			[]string{"result"},
		),
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlens_provider_calls_total",
				Help: "Market data provider calls",
			},
			[]string{"source", "op", "ok"},
		),
		providerLat: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendlens_provider_call_duration_seconds",
				Help:    "Duration of market data provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "op"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendlens_cache_lookups_total",
				Help: "Market data cache lookups",
			},
			[]string{"layer", "hit"},
		),
		sequences: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendlens_predictor_sequences",
				Help: "Sequences scored for the current predictor of a ticker",
			},
			[]string{"ticker"},
		),
	}
}

// RecordBuild records one pipeline run by outcome.
func (r *Recorder) RecordBuild(_ string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.builds.WithLabelValues(outcome).Inc()
	r.buildLatency.WithLabelValues(outcome).Observe(seconds)
}

// RecordValidation records a validation result: valid, invalid or unavailable.
func (r *Recorder) RecordValidation(result string) {
	r.validations.WithLabelValues(result).Inc()
}

// RecordProviderCall records a market data call and its latency.
func (r *Recorder) RecordProviderCall(source, op string, seconds float64, err error) {
	r.providerCalls.WithLabelValues(source, op, strconv.FormatBool(err == nil)).Inc()
	r.providerLat.WithLabelValues(source, op).Observe(seconds)
}

// RecordCache records a cache lookup.
func (r *Recorder) RecordCache(layer string, hit bool) {
	r.cacheLookups.WithLabelValues(layer, strconv.FormatBool(hit)).Inc()
}

// RecordSequences sets the sequence count of a freshly built predictor.
func (r *Recorder) RecordSequences(ticker string, n int) {
	r.sequences.WithLabelValues(ticker).Set(float64(n))
}
