package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"TrendLens/internal/domain/models"
	domrepo "TrendLens/internal/domain/repository"
	applogger "TrendLens/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultIndicators are joined onto every ticker: broad market ETF, 10y rate, volatility index, crude future.
var DefaultIndicators = []string{"QQQ", "^TNX", "^VIX", "CL=F"}

// Config controls feature engineering.
type Config struct {
	Indicators       []string
	PredictionOffset int
	RSIWindow        int
	MinHistory       int
}

// DefaultConfig mirrors the trained model's expectations.
func DefaultConfig() Config {
	return Config{
		Indicators:       DefaultIndicators,
		PredictionOffset: 20,
		RSIWindow:        14,
		MinHistory:       120,
	}
}

// Labeled is a built feature table together with the dates it can serve.
type Labeled struct {
	Table   *Table
	MinDate time.Time
	MaxDate time.Time
}

// Builder joins a ticker's history with indicator closes and derives the direction label.
type Builder struct {
	src domrepo.MarketDataSource
	cfg Config
	l   *applogger.Logger
}

func NewBuilder(src domrepo.MarketDataSource, cfg Config, l *applogger.Logger) *Builder {
	if cfg.RSIWindow <= 0 {
		cfg.RSIWindow = 14
	}
	if cfg.PredictionOffset <= 0 {
		cfg.PredictionOffset = 20
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 120
	}
	return &Builder{src: src, cfg: cfg, l: l}
}

// Column names for ticker t.
func OpenColumn(t string) string   { return t + "_Open" }
func HighColumn(t string) string   { return t + "_High" }
func LowColumn(t string) string    { return t + "_Low" }
func CloseColumn(t string) string  { return t + "_Close" }
func VolumeColumn(t string) string { return t + "_Volume" }
func RSIColumn(t string) string    { return t + "_Close_RSI" }
func FutureColumn(t string) string { return t + "_Close_Future" }

// Build produces the labeled feature table for ticker.
func (b *Builder) Build(ctx context.Context, ticker string) (*Labeled, error) {
	start := time.Now()

	bars, err := b.src.History(ctx, ticker, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w: %w", ticker, models.ErrDataUnavailable, err)
	}
	bars = normalizeBars(bars)
	if len(bars) < b.cfg.MinHistory {
		return nil, fmt.Errorf("history %s: %w: %d rows, need %d", ticker, models.ErrDataUnavailable, len(bars), b.cfg.MinHistory)
	}

	t := NewTable(ticker, OpenColumn(ticker), HighColumn(ticker), LowColumn(ticker), CloseColumn(ticker), VolumeColumn(ticker))
	for _, bar := range bars {
		if err := t.Append(bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return nil, err
		}
	}

	if err := t.AddColumn(RSIColumn(ticker), RSI(t.Column(CloseColumn(ticker)), b.cfg.RSIWindow)); err != nil {
		return nil, err
	}
	warmup := t.DropNA()

	series, err := b.fetchIndicators(ctx)
	if err != nil {
		return nil, err
	}
	for i, ind := range b.cfg.Indicators {
		name := CloseColumn(ind)
		if t.Has(name) {
			// Target ticker shares the indicator's symbol; keep both columns.
			name += "_ind"
		}
		if _, err := t.LeftJoin(ind, name, series[i]); err != nil {
			return nil, err
		}
	}
	gaps := t.DropNA()

	closes := t.Column(CloseColumn(ticker))
	n := b.cfg.PredictionOffset
	future := make([]float64, len(closes))
	for i := range closes {
		if i+n < len(closes) {
			future[i] = closes[i+n]
		} else {
			future[i] = math.NaN()
		}
	}
	if err := t.AddColumn(FutureColumn(ticker), future); err != nil {
		return nil, err
	}
	t.DropNA()

	target := make([]float64, t.Len())
	fi, ci := t.Col(FutureColumn(ticker)), t.Col(CloseColumn(ticker))
	for i, row := range t.Rows {
		target[i] = classify(row.Values[ci], row.Values[fi])
	}
	if err := t.AddColumn(Target, target); err != nil {
		return nil, err
	}

	if t.Len() <= n {
		return nil, fmt.Errorf("features %s: %w: %d labeled rows", ticker, models.ErrDataUnavailable, t.Len())
	}

	out := &Labeled{
		Table:   t,
		MinDate: t.Rows[n].Date,
		MaxDate: t.Rows[t.Len()-1].Date,
	}
	if b.l != nil {
		b.l.Debug("features built",
			applogger.String("ticker", ticker),
			applogger.Int("bars", len(bars)),
			applogger.Int("warmup_dropped", warmup),
			applogger.Int("gap_dropped", gaps),
			applogger.Int("rows", t.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// fetchIndicators loads every indicator close series concurrently, in config order.
func (b *Builder) fetchIndicators(ctx context.Context) ([]map[time.Time]float64, error) {
	out := make([]map[time.Time]float64, len(b.cfg.Indicators))
	g, gctx := errgroup.WithContext(ctx)
	for i, ind := range b.cfg.Indicators {
		i, ind := i, ind
		g.Go(func() error {
			bars, err := b.src.History(gctx, ind, time.Time{}, time.Time{})
			if err != nil {
				return fmt.Errorf("indicator %s: %w: %w", ind, models.ErrDataUnavailable, err)
			}
			m := make(map[time.Time]float64, len(bars))
			for _, bar := range bars {
				m[bar.Date] = bar.Close
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func classify(current, future float64) float64 {
	if future > current {
		return 1
	}
	return 0
}

// normalizeBars sorts by date and keeps the last bar of any duplicated day.
func normalizeBars(bars []models.PriceBar) []models.PriceBar {
	out := append([]models.PriceBar(nil), bars...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	dedup := out[:0]
	for _, bar := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(bar.Date) {
			dedup[n-1] = bar
			continue
		}
		dedup = append(dedup, bar)
	}
	return dedup
}
