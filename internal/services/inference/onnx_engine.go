package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domsvc "TrendLens/internal/domain/service"
	"TrendLens/pkg/config"

	onnxruntime "github.com/yalue/onnxruntime_go"
)

var envOnce sync.Once
var envErr error

// initEnvironment initializes the ONNX runtime once per process.
func initEnvironment(sharedLib string) error {
	envOnce.Do(func() {
		if sharedLib != "" {
			onnxruntime.SetSharedLibraryPath(sharedLib)
		}
		if onnxruntime.IsInitialized() {
			return
		}
		envErr = onnxruntime.InitializeEnvironment()
	})
	return envErr
}

// ONNXEngine runs the exported classifier in-process.
// Input is float32 [batch, seq_len, features], output float32 [batch, classes].
type ONNXEngine struct {
	session    *onnxruntime.DynamicAdvancedSession
	classes    int
	inputName  string
	outputName string
}

func NewONNXEngine(cfg *config.Config) (*ONNXEngine, error) {
	if err := initEnvironment(cfg.Model.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(cfg.Model.Path,
		[]string{cfg.Model.InputName}, []string{cfg.Model.OutputName}, options)
	if err != nil {
		return nil, fmt.Errorf("load onnx model %s: %w", cfg.Model.Path, err)
	}

	return &ONNXEngine{
		session:    session,
		classes:    cfg.Model.Classes,
		inputName:  cfg.Model.InputName,
		outputName: cfg.Model.OutputName,
	}, nil
}

func (e *ONNXEngine) Score(ctx context.Context, batch [][][]float64) ([][]float64, error) {
	if e.session == nil {
		return nil, errors.New("onnx session is closed")
	}
	if len(batch) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, seqLen, width, err := flatten(batch)
	if err != nil {
		return nil, err
	}

	input, err := onnxruntime.NewTensor(onnxruntime.NewShape(int64(len(batch)), int64(seqLen), int64(width)), data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := onnxruntime.NewEmptyTensor[float32](onnxruntime.NewShape(int64(len(batch)), int64(e.classes)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run([]onnxruntime.Value{input}, []onnxruntime.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}

	raw := output.GetData()
	logits := make([][]float64, len(batch))
	for i := range logits {
		row := make([]float64, e.classes)
		for c := 0; c < e.classes; c++ {
			row[c] = float64(raw[i*e.classes+c])
		}
		logits[i] = row
	}
	return logits, checkLogits(len(batch), logits)
}

func (e *ONNXEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

// flatten packs a rectangular batch into row-major float32.
func flatten(batch [][][]float64) ([]float32, int, int, error) {
	seqLen := len(batch[0])
	if seqLen == 0 {
		return nil, 0, 0, errors.New("empty sequence")
	}
	width := len(batch[0][0])
	data := make([]float32, 0, len(batch)*seqLen*width)
	for i, seq := range batch {
		if len(seq) != seqLen {
			return nil, 0, 0, fmt.Errorf("sequence %d has %d steps, want %d", i, len(seq), seqLen)
		}
		for _, step := range seq {
			if len(step) != width {
				return nil, 0, 0, fmt.Errorf("sequence %d has %d features, want %d", i, len(step), width)
			}
			for _, v := range step {
				data = append(data, float32(v))
			}
		}
	}
	return data, seqLen, width, nil
}

var _ domsvc.InferenceEngine = (*ONNXEngine)(nil)
