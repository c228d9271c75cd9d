package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
	"TrendLens/internal/services/features"
	"TrendLens/internal/services/sequence"
	applogger "TrendLens/pkg/logger"
)

var day0 = time.Date(2019, 6, 3, 0, 0, 0, 0, time.UTC)

func series(n int, base float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		c := base + base*0.1*math.Sin(float64(i)/4) + float64(i)*0.03
		out[i] = models.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.985,
			Close:  c,
			Volume: 2_000_000 + float64(i%11)*5000,
		}
	}
	return out
}

func validMeta(ticker string) models.TickerMeta {
	return models.TickerMeta{
		"symbol":                     ticker,
		"underlyingSymbol":           ticker,
		"previousClose":              101.5,
		"regularMarketPreviousClose": 101.5,
	}
}

type fakeSource struct {
	mu           sync.Mutex
	bars         map[string][]models.PriceBar
	meta         map[string]models.TickerMeta
	metaErr      map[string]error
	metaCalls    map[string]int
	historyCalls map[string]int
	gate         chan struct{}
}

func newFakeSource(tickers ...string) *fakeSource {
	f := &fakeSource{
		bars:         map[string][]models.PriceBar{},
		meta:         map[string]models.TickerMeta{},
		metaErr:      map[string]error{},
		metaCalls:    map[string]int{},
		historyCalls: map[string]int{},
	}
	for i, ind := range features.DefaultIndicators {
		f.bars[ind] = series(500, 30*float64(i+1))
	}
	for _, t := range tickers {
		f.bars[t] = series(500, 150)
		f.meta[t] = validMeta(t)
	}
	return f
}

func (f *fakeSource) History(_ context.Context, ticker string, _, _ time.Time) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls[ticker]++
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, errors.New("no data")
	}
	return bars, nil
}

func (f *fakeSource) Metadata(_ context.Context, ticker string) (models.TickerMeta, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls[ticker]++
	if err := f.metaErr[ticker]; err != nil {
		return nil, err
	}
	m, ok := f.meta[ticker]
	if !ok {
		return models.TickerMeta{}, nil
	}
	return m, nil
}

func (f *fakeSource) calls(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metaCalls[ticker]
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// fakeEngine predicts "up" when the last step's first feature is positive.
type fakeEngine struct{}

func (fakeEngine) Score(_ context.Context, batch [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, seq := range batch {
		last := seq[len(seq)-1]
		out[i] = []float64{0, last[0]}
	}
	return out, nil
}

func (fakeEngine) Close() error { return nil }

type recordingEvents struct {
	mu     sync.Mutex
	events []models.PredictorEvent
}

func (r *recordingEvents) PublishEvent(_ context.Context, ev models.PredictorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordBuild(string, float64, error)                 {}
func (nopMetrics) RecordValidation(string)                            {}
func (nopMetrics) RecordProviderCall(string, string, float64, error) {}
func (nopMetrics) RecordCache(string, bool)                           {}
func (nopMetrics) RecordSequences(string, int)                        {}

func newTestRegistry(src *fakeSource, events *recordingEvents) *Registry {
	l := applogger.Nop()
	pipe := NewPipeline(
		features.NewBuilder(src, features.DefaultConfig(), l),
		sequence.NewEncoder(sequence.DefaultLen),
		fakeEngine{},
		l,
	)
	return NewRegistry(src, pipe, events, nopMetrics{}, l, RegistryConfig{
		RetryAfter:   time.Minute,
		BuildTimeout: 30 * time.Second,
	})
}
