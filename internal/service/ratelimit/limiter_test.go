package ratelimit

import (
	"context"
	"testing"
	"time"

	"TrendLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLimiter_AllowPerKey(t *testing.T) {
	l := New(rate.Every(time.Hour), 2)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(rate.Every(time.Hour), 1)
	require.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "k"))
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(120)
	for i := 0; i < 12; i++ {
		assert.True(t, l.Allow("yahoo"), "burst token %d", i)
	}
	assert.False(t, l.Allow("yahoo"))
}

type stubSource struct{ calls int }

func (s *stubSource) History(context.Context, string, time.Time, time.Time) ([]models.PriceBar, error) {
	s.calls++
	return nil, nil
}

func (s *stubSource) Metadata(context.Context, string) (models.TickerMeta, error) {
	s.calls++
	return models.TickerMeta{}, nil
}

func TestSource_Throttles(t *testing.T) {
	next := &stubSource{}
	src := NewSource(next, New(rate.Every(time.Hour), 1), "yahoo")

	_, err := src.Metadata(context.Background(), "AAPL")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.History(ctx, "AAPL", time.Time{}, time.Time{})
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)
}
