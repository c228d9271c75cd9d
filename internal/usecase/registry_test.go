package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TrendLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuildsOnceAndReuses(t *testing.T) {
	src := newFakeSource("AAPL")
	events := &recordingEvents{}
	reg := newTestRegistry(src, events)

	p, err := reg.Get(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", p.Ticker())

	// 500 bars lose 14 to RSI warm-up, 20 to the horizon, 10 to percent changes, 59 to the first window.
	assert.Equal(t, 500-14-20-10-59, p.Sequences())
	assert.Equal(t, p.History().Table.Rows[20].Date, p.MinDate())
	assert.Equal(t, day0.AddDate(0, 0, 500-1-20), p.MaxDate())

	again, err := reg.Get(context.Background(), " AAPL ")
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, src.calls("AAPL"))
	assert.Equal(t, []string{models.EventBuilt}, events.types())

	res, err := p.Predict(p.MinDate(), p.MaxDate())
	require.NoError(t, err)
	assert.Len(t, res, p.Sequences())
}

func TestRegistry_ConcurrentFirstRequestsShareBuild(t *testing.T) {
	src := newFakeSource("MSFT")
	src.gate = make(chan struct{})
	reg := newTestRegistry(src, &recordingEvents{})

	const n = 8
	var wg sync.WaitGroup
	results := make([]*TickerPredictor, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reg.Get(context.Background(), "MSFT")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, src.calls("MSFT"))
}

func TestRegistry_GetJoinsInFlightRefresh(t *testing.T) {
	src := newFakeSource("ORCL")
	src.gate = make(chan struct{})
	reg := newTestRegistry(src, &recordingEvents{})

	var wg sync.WaitGroup
	var refreshed, got *TickerPredictor
	var refreshErr, getErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		refreshed, refreshErr = reg.Refresh(context.Background(), "ORCL")
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		got, getErr = reg.Get(context.Background(), "orcl")
	}()
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	require.NoError(t, refreshErr)
	require.NoError(t, getErr)
	assert.Same(t, refreshed, got)
	assert.Equal(t, 1, src.calls("ORCL"))
}

func TestRegistry_InvalidTickerNeverRequeried(t *testing.T) {
	src := newFakeSource()
	src.meta["ZZZZINVALID"] = models.TickerMeta{
		"symbol":                     "ZZZZINVALID",
		"previousClose":              1.0,
		"regularMarketPreviousClose": 1.0,
	}
	events := &recordingEvents{}
	reg := newTestRegistry(src, events)

	_, err := reg.Get(context.Background(), "ZZZZINVALID")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidTicker))
	assert.Contains(t, err.Error(), "underlyingSymbol")

	_, err = reg.Get(context.Background(), "ZZZZINVALID")
	assert.True(t, errors.Is(err, models.ErrInvalidTicker))
	assert.Equal(t, 1, src.calls("ZZZZINVALID"))
	assert.Equal(t, []string{models.EventInvalid}, events.types())

	// Invalid forever, even after the retry window.
	reg.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	_, err = reg.Get(context.Background(), "ZZZZINVALID")
	assert.True(t, errors.Is(err, models.ErrInvalidTicker))
	assert.Equal(t, 1, src.calls("ZZZZINVALID"))
}

func TestRegistry_EmptyStringFieldIsMissing(t *testing.T) {
	src := newFakeSource("EMPTY")
	src.meta["EMPTY"]["underlyingSymbol"] = ""
	_, err := newTestRegistry(src, &recordingEvents{}).Get(context.Background(), "EMPTY")
	assert.True(t, errors.Is(err, models.ErrInvalidTicker))
}

func TestRegistry_TransientFailureRetriedAfterWindow(t *testing.T) {
	src := newFakeSource("NVDA")
	src.metaErr["NVDA"] = errors.New("connection reset")
	events := &recordingEvents{}
	reg := newTestRegistry(src, events)

	_, err := reg.Get(context.Background(), "NVDA")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.False(t, errors.Is(err, models.ErrInvalidTicker))

	// Within the retry window the failure is served from memory.
	_, err = reg.Get(context.Background(), "NVDA")
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.Equal(t, 1, src.calls("NVDA"))

	src.set(func(f *fakeSource) { delete(f.metaErr, "NVDA") })
	reg.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	p, err := reg.Get(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, src.calls("NVDA"))
	assert.Equal(t, []string{models.EventUnavailable, models.EventBuilt}, events.types())
}

func TestRegistry_InsufficientHistoryIsUnavailable(t *testing.T) {
	src := newFakeSource("IPO")
	src.bars["IPO"] = series(100, 10)
	events := &recordingEvents{}
	reg := newTestRegistry(src, events)

	_, err := reg.Get(context.Background(), "IPO")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.Equal(t, []string{models.EventUnavailable}, events.types())

	_, ok := reg.Cached("IPO")
	assert.False(t, ok)
}

func TestRegistry_RefreshClearsNegativeAndRebuilds(t *testing.T) {
	src := newFakeSource("TSLA")
	delete(src.meta, "TSLA")
	reg := newTestRegistry(src, &recordingEvents{})

	_, err := reg.Get(context.Background(), "TSLA")
	require.True(t, errors.Is(err, models.ErrInvalidTicker))

	src.set(func(f *fakeSource) { f.meta["TSLA"] = validMeta("TSLA") })
	first, err := reg.Refresh(context.Background(), "TSLA")
	require.NoError(t, err)

	second, err := reg.Refresh(context.Background(), "tsla")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	cached, ok := reg.Cached("TSLA")
	require.True(t, ok)
	assert.Same(t, second, cached)
	assert.Equal(t, 3, src.calls("TSLA"))
}

func TestRegistry_RefreshKeepsPredictorOnTransientFailure(t *testing.T) {
	src := newFakeSource("AMD")
	reg := newTestRegistry(src, &recordingEvents{})

	p, err := reg.Get(context.Background(), "AMD")
	require.NoError(t, err)

	src.set(func(f *fakeSource) { f.metaErr["AMD"] = errors.New("timeout") })
	_, err = reg.Refresh(context.Background(), "AMD")
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))

	again, err := reg.Get(context.Background(), "AMD")
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestRegistry_CallerCancellationDoesNotAbortBuild(t *testing.T) {
	src := newFakeSource("META")
	src.gate = make(chan struct{})
	reg := newTestRegistry(src, &recordingEvents{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Get(ctx, "META")
	assert.True(t, errors.Is(err, context.Canceled))

	close(src.gate)
	assert.Eventually(t, func() bool {
		_, ok := reg.Cached("META")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRegistry_EmptyTicker(t *testing.T) {
	_, err := newTestRegistry(newFakeSource(), &recordingEvents{}).Get(context.Background(), "  ")
	assert.True(t, errors.Is(err, models.ErrInvalidTicker))
}

func TestRegistry_Warmup(t *testing.T) {
	src := newFakeSource("AAPL", "MSFT")
	reg := newTestRegistry(src, &recordingEvents{})

	reg.Warmup(context.Background(), []string{"AAPL", "MSFT", "NOPE"})

	_, ok := reg.Cached("AAPL")
	assert.True(t, ok)
	_, ok = reg.Cached("MSFT")
	assert.True(t, ok)
	_, ok = reg.Cached("NOPE")
	assert.False(t, ok)
	assert.Equal(t, 2, reg.Len())
}
