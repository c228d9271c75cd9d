package inference

import (
	"context"
	"fmt"

	domsvc "TrendLens/internal/domain/service"
	"TrendLens/pkg/config"
)

// HTTPEngine scores sequences against a TensorFlow-Serving compatible predict endpoint.
type HTTPEngine struct {
	base     *HTTPServiceBase
	path     string
	attempts int
}

func NewHTTPEngine(cfg *config.Config) *HTTPEngine {
	attempts := cfg.Model.Retries
	if attempts <= 0 {
		attempts = 3
	}
	return &HTTPEngine{
		base:     NewHTTPServiceBase(cfg),
		path:     fmt.Sprintf("/v1/models/%s:predict", cfg.Model.Name),
		attempts: attempts,
	}
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

func (e *HTTPEngine) Score(ctx context.Context, batch [][][]float64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	var pr predictResponse
	if err := e.base.PostJSONWithRetry(ctx, e.path, predictRequest{Instances: batch}, &pr, e.attempts); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if err := checkLogits(len(batch), pr.Predictions); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return pr.Predictions, nil
}

func (e *HTTPEngine) Close() error { return nil }

var _ domsvc.InferenceEngine = (*HTTPEngine)(nil)
