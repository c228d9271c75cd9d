package di

import (
	"context"
	"fmt"
	"time"

	"TrendLens/internal/domain/repository"
	domsvc "TrendLens/internal/domain/service"
	"TrendLens/internal/handler/api"
	internalrepo "TrendLens/internal/repository"
	icache "TrendLens/internal/service/cache"
	imetrics "TrendLens/internal/service/metrics"
	"TrendLens/internal/service/ratelimit"
	"TrendLens/internal/service/yahoo"
	"TrendLens/internal/services/features"
	"TrendLens/internal/services/inference"
	"TrendLens/internal/services/sequence"
	"TrendLens/internal/usecase"
	pkgcache "TrendLens/pkg/cache"
	pkgch "TrendLens/pkg/clickhouse"
	"TrendLens/pkg/config"
	pkgkafka "TrendLens/pkg/kafka"
	applogger "TrendLens/pkg/logger"
	"TrendLens/pkg/metrics"
	"TrendLens/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when bars are read from ClickHouse, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Market.Source != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCache creates the market-data cache backend. Backend "none" yields nil.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	redisCfg := pkgcache.RedisConfig{
		Host:     cfg.Cache.Redis.Host,
		Port:     cfg.Cache.Redis.Port,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		PoolSize: cfg.Cache.Redis.PoolSize,
		Prefix:   cfg.Cache.Redis.Prefix,
	}
	memCfg := pkgcache.MemoryConfig{MaxSize: cfg.Cache.MemoryMaxSize}

	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "redis", "layered":
		rc, err := pkgcache.NewRedisCache(context.Background(), redisCfg)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "redis" {
			return rc, nil
		}
		return pkgcache.NewLayeredCache(rc, pkgcache.LayeredConfig{Memory: memCfg, MemoryTTL: time.Hour}), nil
	default:
		return pkgcache.NewMemoryCache(memCfg), nil
	}
}

// ProvideMarketSource composes provider → instrumentation → rate limit → cache.
func ProvideMarketSource(
	cfg *config.Config,
	ch *pkgch.Client,
	cache pkgcache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) (repository.MarketDataSource, error) {
	var src repository.MarketDataSource
	switch cfg.Market.Source {
	case "clickhouse":
		store := internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database+"."+cfg.Market.Table)
		store.SetLogger(l)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}, store.Schema()...)
		if err := ch.InitSchema(ctx, stmts); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		src = store
	default:
		src = yahoo.New(cfg.Market.BaseURL, cfg.Market.Timeout, l, yahoo.WithCookieURL(cfg.Market.CookieURL))
	}

	src = imetrics.NewSource(src, cfg.Market.Source, m)
	src = ratelimit.NewSource(src, ratelimit.PerMinute(cfg.Market.RatePerMinute), cfg.Market.Source)
	if cache != nil {
		src = icache.NewSource(src, cache, cfg.Market.CacheTTL, cfg.Cache.Backend, m, l)
	}
	return src, nil
}

// ProvideEngine creates the inference backend selected by model.backend.
func ProvideEngine(cfg *config.Config) (domsvc.InferenceEngine, error) {
	e, err := inference.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("inference engine: %w", err)
	}
	return e, nil
}

// ProvideFeatureBuilder creates the feature builder.
func ProvideFeatureBuilder(src repository.MarketDataSource, cfg *config.Config, l *applogger.Logger) *features.Builder {
	return features.NewBuilder(src, features.Config{
		Indicators:       cfg.Pipeline.Indicators,
		PredictionOffset: cfg.Pipeline.PredictionOffset,
		RSIWindow:        cfg.Pipeline.RSIWindow,
		MinHistory:       cfg.Pipeline.MinHistory,
	}, l)
}

// ProvideEncoder creates the sequence encoder.
func ProvideEncoder(cfg *config.Config) *sequence.Encoder {
	return sequence.NewEncoder(cfg.Pipeline.SequenceLen)
}

// ProvideEventPublisher publishes predictor events to Kafka when enabled, to the log otherwise.
func ProvideEventPublisher(cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewLogEventPublisher(l), nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		BatchTimeout: cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
		HashByKey:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideRegistry creates the predictor registry.
func ProvideRegistry(
	src repository.MarketDataSource,
	pipe *usecase.Pipeline,
	events repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Registry {
	return usecase.NewRegistry(src, pipe, events, m, l, usecase.RegistryConfig{
		RequiredFields: cfg.Validation.RequiredFields,
		RetryAfter:     cfg.Validation.RetryAfter,
		BuildTimeout:   cfg.Pipeline.BuildTimeout,
	})
}

// ProvidePredictionsHandler creates the HTTP handler.
func ProvidePredictionsHandler(l *applogger.Logger, reg *usecase.Registry) *api.PredictionsEchoHandler {
	return api.NewPredictionsEchoHandler(l, reg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	reg *usecase.Registry,
	h *api.PredictionsEchoHandler,
	engine domsvc.InferenceEngine,
	events repository.EventPublisher,
	cache pkgcache.Service,
	ch *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, reg, h, engine, events)
	if cache != nil {
		app.OnClose("cache", cache)
	}
	if ch != nil {
		app.OnClose("clickhouse", ch)
	}
	return app
}
