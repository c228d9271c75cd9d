package inference

import (
	"context"
	"fmt"

	domsvc "TrendLens/internal/domain/service"
	"TrendLens/pkg/config"
)

// New returns the configured backend wrapped to submit at most model.batch_size sequences per call.
func New(cfg *config.Config) (domsvc.InferenceEngine, error) {
	var inner domsvc.InferenceEngine
	switch cfg.Model.Backend {
	case "onnx":
		e, err := NewONNXEngine(cfg)
		if err != nil {
			return nil, err
		}
		inner = e
	case "http":
		inner = NewHTTPEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
	return NewBatched(inner, cfg.Model.BatchSize), nil
}

// Batched splits large batches into chunks and concatenates the results in order.
type Batched struct {
	inner domsvc.InferenceEngine
	size  int
}

func NewBatched(inner domsvc.InferenceEngine, size int) *Batched {
	return &Batched{inner: inner, size: size}
}

func (b *Batched) Score(ctx context.Context, batch [][][]float64) ([][]float64, error) {
	if b.size <= 0 || len(batch) <= b.size {
		return b.inner.Score(ctx, batch)
	}
	out := make([][]float64, 0, len(batch))
	for start := 0; start < len(batch); start += b.size {
		end := min(start+b.size, len(batch))
		logits, err := b.inner.Score(ctx, batch[start:end])
		if err != nil {
			return nil, fmt.Errorf("chunk %d-%d: %w", start, end, err)
		}
		if err := checkLogits(end-start, logits); err != nil {
			return nil, fmt.Errorf("chunk %d-%d: %w", start, end, err)
		}
		out = append(out, logits...)
	}
	return out, nil
}

func (b *Batched) Close() error { return b.inner.Close() }

// Argmax returns the predicted class per logit vector; ties go to the lower index.
func Argmax(logits [][]float64) []int {
	out := make([]int, len(logits))
	for i, l := range logits {
		best := 0
		for c := 1; c < len(l); c++ {
			if l[c] > l[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out
}

var _ domsvc.InferenceEngine = (*Batched)(nil)
