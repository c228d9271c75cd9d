package ratelimit

import (
	"context"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
	drepo "TrendLens/internal/domain/repository"

	"golang.org/x/time/rate"
)

// Limiter hands out per-key token buckets that share one rate.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

// PerMinute returns a limiter allowing n events per minute per key with a burst of max(1, n/10).
func PerMinute(n int) *Limiter {
	burst := n / 10
	if burst < 1 {
		burst = 1
	}
	return New(rate.Every(time.Minute/time.Duration(max(n, 1))), burst)
}

func New(limit rate.Limit, burst int) *Limiter {
	return &Limiter{m: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = b
	}
	return b
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a token is available for key or ctx ends.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Source throttles calls to an upstream market data provider.
type Source struct {
	next drepo.MarketDataSource
	lim  *Limiter
	key  string
}

func NewSource(next drepo.MarketDataSource, lim *Limiter, key string) *Source {
	return &Source{next: next, lim: lim, key: key}
}

func (s *Source) History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	if err := s.lim.Wait(ctx, s.key); err != nil {
		return nil, err
	}
	return s.next.History(ctx, ticker, from, to)
}

func (s *Source) Metadata(ctx context.Context, ticker string) (models.TickerMeta, error) {
	if err := s.lim.Wait(ctx, s.key); err != nil {
		return nil, err
	}
	return s.next.Metadata(ctx, ticker)
}

var _ drepo.MarketDataSource = (*Source)(nil)
