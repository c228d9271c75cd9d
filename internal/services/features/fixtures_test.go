package features

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
)

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]models.PriceBar
	err   map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:  map[string][]models.PriceBar{},
		err:   map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) History(_ context.Context, ticker string, _, _ time.Time) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++
	if err := f.err[ticker]; err != nil {
		return nil, err
	}
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, errors.New("unknown ticker")
	}
	return bars, nil
}

func (f *fakeSource) Metadata(_ context.Context, ticker string) (models.TickerMeta, error) {
	return models.TickerMeta{"symbol": ticker}, nil
}

var day0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds n daily bars with a wavy uptrend scaled by base.
func series(n int, base float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		c := base + base*0.1*math.Sin(float64(i)/5) + float64(i)*0.05
		out[i] = models.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1_000_000 + float64(i%17)*1000,
		}
	}
	return out
}

func seededSource(ticker string, n int) *fakeSource {
	src := newFakeSource()
	src.bars[ticker] = series(n, 150)
	for i, ind := range DefaultIndicators {
		src.bars[ind] = series(n, 20*float64(i+1))
	}
	return src
}
