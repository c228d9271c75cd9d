package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
	drepo "TrendLens/internal/domain/repository"
	applogger "TrendLens/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultRequiredFields must be present in provider metadata for a ticker to be valid.
var DefaultRequiredFields = []string{"symbol", "underlyingSymbol", "previousClose", "regularMarketPreviousClose"}

// PredictorBuilder produces a predictor for a validated ticker.
type PredictorBuilder interface {
	Run(ctx context.Context, ticker string) (*TickerPredictor, error)
}

// RegistryConfig controls validation and build policy.
type RegistryConfig struct {
	RequiredFields []string
	RetryAfter     time.Duration
	BuildTimeout   time.Duration
}

type failure struct {
	err   error
	until time.Time
}

// Registry caches one predictor per ticker for the process lifetime.
// Confirmed-invalid tickers are remembered permanently; transient failures only until RetryAfter elapses.
type Registry struct {
	src     drepo.MarketDataSource
	builder PredictorBuilder
	events  drepo.EventPublisher
	metrics drepo.Metrics
	l       *applogger.Logger
	cfg     RegistryConfig
	now     func() time.Time

	mu          sync.RWMutex
	predictors  map[string]*TickerPredictor
	invalid     map[string]struct{}
	unavailable map[string]failure

	sf singleflight.Group
}

func NewRegistry(
	src drepo.MarketDataSource,
	builder PredictorBuilder,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg RegistryConfig,
) *Registry {
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = DefaultRequiredFields
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 5 * time.Minute
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 2 * time.Minute
	}
	return &Registry{
		src:         src,
		builder:     builder,
		events:      events,
		metrics:     metrics,
		l:           l,
		cfg:         cfg,
		now:         time.Now,
		predictors:  make(map[string]*TickerPredictor),
		invalid:     make(map[string]struct{}),
		unavailable: make(map[string]failure),
	}
}

// Normalize returns the cache key for a user supplied ticker.
func Normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Get returns the predictor for ticker, validating and building it on first use.
// Concurrent first requests for the same ticker share one build.
func (r *Registry) Get(ctx context.Context, ticker string) (*TickerPredictor, error) {
	key := Normalize(ticker)
	if key == "" {
		return nil, fmt.Errorf("empty ticker: %w", models.ErrInvalidTicker)
	}
	if p, done, err := r.lookup(key); done {
		return p, err
	}
	return r.do(ctx, key, func(bctx context.Context) (*TickerPredictor, error) {
		if p, done, err := r.lookup(key); done {
			return p, err
		}
		return r.build(bctx, key)
	})
}

// Refresh forgets any negative result for ticker and rebuilds its predictor. The previous predictor
// keeps serving if the rebuild fails for a transient reason.
func (r *Registry) Refresh(ctx context.Context, ticker string) (*TickerPredictor, error) {
	key := Normalize(ticker)
	if key == "" {
		return nil, fmt.Errorf("empty ticker: %w", models.ErrInvalidTicker)
	}
	r.mu.Lock()
	delete(r.invalid, key)
	delete(r.unavailable, key)
	r.mu.Unlock()

	if inv, ok := r.src.(drepo.Invalidator); ok {
		if err := inv.Invalidate(ctx, key); err != nil {
			r.l.Warn("invalidate market cache failed", applogger.String("ticker", key), applogger.Error(err))
		}
	}

	return r.do(ctx, key, func(bctx context.Context) (*TickerPredictor, error) {
		return r.build(bctx, key)
	})
}

// Cached returns the predictor without building.
func (r *Registry) Cached(ticker string) (*TickerPredictor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predictors[Normalize(ticker)]
	return p, ok
}

// Len returns the number of built predictors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.predictors)
}

// Warmup builds tickers in the background of the caller, a few at a time. Failures are logged only.
func (r *Registry) Warmup(ctx context.Context, tickers []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range tickers {
		t := t
		g.Go(func() error {
			if _, err := r.Get(gctx, t); err != nil {
				r.l.Warn("warmup failed", applogger.String("ticker", t), applogger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// lookup answers from cached state. done is false when the ticker still needs a build.
func (r *Registry) lookup(key string) (*TickerPredictor, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.predictors[key]; ok {
		return p, true, nil
	}
	if _, ok := r.invalid[key]; ok {
		return nil, true, fmt.Errorf("%s: %w", key, models.ErrInvalidTicker)
	}
	if f, ok := r.unavailable[key]; ok && r.now().Before(f.until) {
		return nil, true, f.err
	}
	return nil, false, nil
}

// do runs at most one build per ticker at a time: Get and Refresh callers arriving while a build is in
// flight all share its result. The build is detached from the caller's cancellation but bounded by the
// build timeout. A caller whose context ends stops waiting; the build itself keeps going.
func (r *Registry) do(ctx context.Context, key string, fn func(context.Context) (*TickerPredictor, error)) (*TickerPredictor, error) {
	ch := r.sf.DoChan(key, func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.BuildTimeout)
		defer cancel()
		return fn(bctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TickerPredictor), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", key, ctx.Err())
	}
}

func (r *Registry) build(ctx context.Context, key string) (*TickerPredictor, error) {
	start := time.Now()

	if err := r.validate(ctx, key); err != nil {
		r.metrics.RecordBuild(key, time.Since(start).Seconds(), err)
		return nil, err
	}

	p, err := r.builder.Run(ctx, key)
	r.metrics.RecordBuild(key, time.Since(start).Seconds(), err)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTicker) {
			r.markInvalid(ctx, key, err)
			return nil, err
		}
		if !errors.Is(err, models.ErrDataUnavailable) {
			err = fmt.Errorf("%s: %w: %w", key, models.ErrDataUnavailable, err)
		}
		r.markUnavailable(ctx, key, err)
		return nil, err
	}

	r.mu.Lock()
	r.predictors[key] = p
	delete(r.unavailable, key)
	r.mu.Unlock()

	r.metrics.RecordSequences(key, p.Sequences())
	r.publish(ctx, models.PredictorEvent{
		Ticker:    key,
		Type:      models.EventBuilt,
		MinDate:   p.MinDate(),
		MaxDate:   p.MaxDate(),
		Sequences: p.Sequences(),
		At:        p.BuiltAt(),
	})
	return p, nil
}

// validate checks provider metadata for the required identifying fields.
func (r *Registry) validate(ctx context.Context, key string) error {
	meta, err := r.src.Metadata(ctx, key)
	if err != nil {
		err = fmt.Errorf("metadata %s: %w: %w", key, models.ErrDataUnavailable, err)
		r.metrics.RecordValidation("unavailable")
		r.markUnavailable(ctx, key, err)
		return err
	}
	for _, field := range r.cfg.RequiredFields {
		if !meta.Has(field) {
			err := fmt.Errorf("%s: missing %s: %w", key, field, models.ErrInvalidTicker)
			r.metrics.RecordValidation("invalid")
			r.markInvalid(ctx, key, err)
			return err
		}
	}
	r.metrics.RecordValidation("valid")
	return nil
}

func (r *Registry) markInvalid(ctx context.Context, key string, err error) {
	r.mu.Lock()
	r.invalid[key] = struct{}{}
	delete(r.predictors, key)
	delete(r.unavailable, key)
	r.mu.Unlock()

	r.l.Warn("ticker invalid", applogger.String("ticker", key), applogger.Error(err))
	r.publish(ctx, models.PredictorEvent{Ticker: key, Type: models.EventInvalid, Reason: err.Error(), At: r.now()})
}

func (r *Registry) markUnavailable(ctx context.Context, key string, err error) {
	until := r.now().Add(r.cfg.RetryAfter)
	r.mu.Lock()
	r.unavailable[key] = failure{err: err, until: until}
	r.mu.Unlock()

	r.l.Warn("ticker data unavailable",
		applogger.String("ticker", key),
		applogger.Time("retry_after", until),
		applogger.Error(err),
	)
	r.publish(ctx, models.PredictorEvent{Ticker: key, Type: models.EventUnavailable, Reason: err.Error(), At: r.now()})
}

func (r *Registry) publish(ctx context.Context, ev models.PredictorEvent) {
	if err := r.events.PublishEvent(ctx, ev); err != nil {
		r.l.Warn("publish predictor event failed",
			applogger.String("ticker", ev.Ticker),
			applogger.String("type", ev.Type),
			applogger.Error(err),
		)
	}
}
