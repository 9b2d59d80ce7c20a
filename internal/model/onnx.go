package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXConfig points at a sequence-classification model exported to ONNX.
type ONNXConfig struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string   // libonnxruntime shared library; empty uses the default lookup
	Labels      []string // index-aligned with the model's logits
}

// ONNXScorer runs a local text classifier and reports a softmax
// distribution over its labels.
type ONNXScorer struct {
	session    *ort.DynamicAdvancedSession
	tok        *wordpiece
	labels     []string
	inputNames []string
}

// NewONNXScorer loads the runtime, vocabulary and model, and checks that the
// model's output width matches the configured labels.
func NewONNXScorer(cfg ONNXConfig) (*ONNXScorer, error) {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return nil, fmt.Errorf("onnx: model and vocab paths: %w", ErrNotConfigured)
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("onnx: labels: %w", ErrNotConfigured)
	}

	tok, err := loadWordpiece(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	inputNames, err := classifierInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 2 {
		return nil, fmt.Errorf("onnx: expected [batch, labels] logits, got %v", dims)
	}
	if dims[1] > 0 && int(dims[1]) != len(cfg.Labels) {
		return nil, fmt.Errorf("onnx: model has %d labels, configured %d", dims[1], len(cfg.Labels))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &ONNXScorer{session: session, tok: tok, labels: cfg.Labels, inputNames: inputNames}, nil
}

// classifierInputs requires input_ids and attention_mask; token_type_ids is
// fed only when the model declares it (BERT does, DistilBERT does not).
func classifierInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask"}
	for _, n := range names {
		if !have[n] {
			return nil, fmt.Errorf("onnx: model missing required input %q", n)
		}
	}
	if have["token_type_ids"] {
		names = append(names, "token_type_ids")
	}
	return names, nil
}

// Classify tokenizes text, runs the model and returns
// [{"label":..., "score":...}, ...] in label order.
func (s *ONNXScorer) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask := s.tok.encode(text)
	shape := ort.NewShape(1, int64(len(ids)))

	values := make([]ort.Value, 0, len(s.inputNames))
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()
	for _, name := range s.inputNames {
		data := ids
		switch name {
		case "attention_mask":
			data = mask
		case "token_type_ids":
			data = make([]int64, len(ids))
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: %s tensor: %w", name, err)
		}
		values = append(values, t)
	}

	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(s.labels))))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer logits.Destroy()

	if err := s.session.Run(values, []ort.Value{logits}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	return json.Marshal(labelScores(s.labels, softmax(logits.GetData())))
}

// Close releases the session.
func (s *ONNXScorer) Close() error {
	return s.session.Destroy()
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func labelScores(labels []string, probs []float64) []labelScore {
	out := make([]labelScore, 0, len(labels))
	for i, l := range labels {
		if i >= len(probs) {
			break
		}
		out = append(out, labelScore{Label: l, Score: probs[i]})
	}
	return out
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	peak := math.Inf(-1)
	for _, l := range logits {
		peak = math.Max(peak, float64(l))
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
