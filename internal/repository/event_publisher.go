package repository

import (
	"context"

	"TrendLens/internal/domain/models"
	domrepo "TrendLens/internal/domain/repository"
	applogger "TrendLens/pkg/logger"
)

// Publisher is the subset of pkg/kafka.Producer used for predictor events.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes predictor events keyed by ticker so each ticker's events stay ordered.
type KafkaEventPublisher struct {
	producer Publisher
	topic    string
}

func NewKafkaEventPublisher(producer Publisher, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, ev models.PredictorEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Ticker), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogEventPublisher records events in the log when Kafka is disabled.
type LogEventPublisher struct {
	l *applogger.Logger
}

func NewLogEventPublisher(l *applogger.Logger) *LogEventPublisher {
	return &LogEventPublisher{l: l}
}

func (p *LogEventPublisher) PublishEvent(_ context.Context, ev models.PredictorEvent) error {
	if p.l != nil {
		p.l.Debug("predictor event",
			applogger.String("ticker", ev.Ticker),
			applogger.String("type", ev.Type),
			applogger.Int("sequences", ev.Sequences),
		)
	}
	return nil
}

func (p *LogEventPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = (*LogEventPublisher)(nil)
)
