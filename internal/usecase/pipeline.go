package usecase

import (
	"context"
	"fmt"
	"time"

	domsvc "TrendLens/internal/domain/service"
	"TrendLens/internal/services/features"
	"TrendLens/internal/services/inference"
	"TrendLens/internal/services/reconcile"
	"TrendLens/internal/services/sequence"
	applogger "TrendLens/pkg/logger"
)

// Pipeline runs build → encode → score → reconcile for one ticker.
type Pipeline struct {
	builder *features.Builder
	encoder *sequence.Encoder
	engine  domsvc.InferenceEngine
	l       *applogger.Logger
}

func NewPipeline(builder *features.Builder, encoder *sequence.Encoder, engine domsvc.InferenceEngine, l *applogger.Logger) *Pipeline {
	return &Pipeline{builder: builder, encoder: encoder, engine: engine, l: l}
}

// Run builds a predictor. Errors from the builder keep their sentinel so callers can classify them.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*TickerPredictor, error) {
	start := time.Now()

	labeled, err := p.builder.Build(ctx, ticker)
	if err != nil {
		return nil, err
	}

	seqs := p.encoder.Encode(labeled.Table)
	batch, _ := sequence.Batch(seqs)

	var classes []int
	if len(batch) > 0 {
		logits, err := p.engine.Score(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", ticker, err)
		}
		classes = inference.Argmax(logits)
	}

	result, err := reconcile.Reconcile(labeled, seqs, classes)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", ticker, err)
	}

	p.l.Info("predictor built",
		applogger.String("ticker", ticker),
		applogger.Int("rows", labeled.Table.Len()),
		applogger.Int("sequences", len(seqs)),
		applogger.Int("results", result.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	return NewTickerPredictor(ticker, labeled, result, len(seqs), time.Now()), nil
}
