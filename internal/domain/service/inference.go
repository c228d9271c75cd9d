package service

import "context"

// InferenceEngine scores a batch of sequences shaped [batch][seq_len][features]
// and returns one logit vector per sequence. Implementations must be deterministic.
type InferenceEngine interface {
	Score(ctx context.Context, batch [][][]float64) ([][]float64, error)
	Close() error
}
