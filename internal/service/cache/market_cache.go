package cache

import (
	"context"
	"errors"
	"time"

	"TrendLens/internal/domain/models"
	drepo "TrendLens/internal/domain/repository"
	pkgcache "TrendLens/pkg/cache"
	applogger "TrendLens/pkg/logger"
)

// Source caches provider responses so indicator series are shared across tickers.
type Source struct {
	next    drepo.MarketDataSource
	c       pkgcache.Service
	ttl     time.Duration
	layer   string
	metrics drepo.Metrics
	l       *applogger.Logger
}

func NewSource(next drepo.MarketDataSource, c pkgcache.Service, ttl time.Duration, layer string, metrics drepo.Metrics, l *applogger.Logger) *Source {
	return &Source{next: next, c: c, ttl: ttl, layer: layer, metrics: metrics, l: l}
}

func historyKey(ticker string, from, to time.Time) string {
	return pkgcache.Key("bars", ticker, unixOrZero(from), unixOrZero(to))
}

func metaKey(ticker string) string { return pkgcache.Key("meta", ticker) }

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func (s *Source) History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	key := historyKey(ticker, from, to)
	var bars []models.PriceBar
	if s.lookup(ctx, key, &bars) {
		return bars, nil
	}
	bars, err := s.next.History(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, bars)
	return bars, nil
}

func (s *Source) Metadata(ctx context.Context, ticker string) (models.TickerMeta, error) {
	key := metaKey(ticker)
	var meta models.TickerMeta
	if s.lookup(ctx, key, &meta) {
		return meta, nil
	}
	meta, err := s.next.Metadata(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, meta)
	return meta, nil
}

// Invalidate drops everything cached for ticker.
func (s *Source) Invalidate(ctx context.Context, ticker string) error {
	if err := s.c.Delete(ctx, metaKey(ticker)); err != nil {
		return err
	}
	return s.c.DeletePrefix(ctx, pkgcache.Key("bars", ticker)+":")
}

func (s *Source) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := s.c.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCache(s.layer, hit)
	if err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
		s.l.Warn("market cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	return hit
}

func (s *Source) store(ctx context.Context, key string, value interface{}) {
	if err := s.c.Set(ctx, key, value, s.ttl); err != nil {
		s.l.Warn("market cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}

var _ drepo.MarketDataSource = (*Source)(nil)
var _ drepo.Invalidator = (*Source)(nil)
