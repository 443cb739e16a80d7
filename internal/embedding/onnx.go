package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxConfig configures an OnnxEmbedder.
type OnnxConfig struct {
	ModelPath string
	Dim       int
	MaxTokens int
	VocabSize int
}

// DefaultOnnxConfig returns the configuration for the default sentence
// embedding model referenced by embedding.model_name.
func DefaultOnnxConfig(modelPath string) OnnxConfig {
	return OnnxConfig{
		ModelPath: modelPath,
		Dim:       Dim,
		MaxTokens: 128,
		VocabSize: 30522,
	}
}

// OnnxEmbedder runs a sentence-embedding ONNX model. Text is reduced to a
// fixed-length token-id sequence by a hashing tokenizer: no vocabulary
// artifact ships with the service, so token ids are derived
// deterministically from the input rather than looked up.
type OnnxEmbedder struct {
	config  OnnxConfig
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewOnnxEmbedder loads the model at config.ModelPath and initializes the
// ONNX Runtime session used to produce embeddings.
func NewOnnxEmbedder(config OnnxConfig) (*OnnxEmbedder, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("get model info: %w", err)
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(config.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &OnnxEmbedder{config: config, session: session}, nil
}

// Embed tokenizes text, runs the model, mean-pools the token embeddings,
// and returns the unit-normalized result.
func (e *OnnxEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embedding text must be non-empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ids, mask := tokenize(text, e.config.MaxTokens, e.config.VocabSize)
	n := len(ids)

	idTensor, err := ort.NewTensor(ort.NewShape(1, int64(n)), ids)
	if err != nil {
		return nil, fmt.Errorf("create input-ids tensor: %w", err)
	}
	defer idTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, int64(n)), mask)
	if err != nil {
		return nil, fmt.Errorf("create attention-mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected model output type")
	}
	data := outTensor.GetData()

	pooled := meanPool(data, mask, e.config.Dim)
	result := make([]float32, len(pooled))
	copy(result, normalize(pooled))
	return result, nil
}

// Close releases the underlying ONNX Runtime session.
func (e *OnnxEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}

// meanPool averages per-token hidden states over non-masked tokens. data
// is laid out [seq_len, dim] row-major.
func meanPool(data []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	seqLen := len(mask)
	for t := 0; t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		base := t * dim
		if base+dim > len(data) {
			break
		}
		for d := 0; d < dim; d++ {
			out[d] += data[base+d]
		}
		count++
	}
	if count > 0 {
		for d := range out {
			out[d] /= count
		}
	}
	return out
}
