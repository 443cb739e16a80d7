package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// tokenize reduces text to a fixed-length sequence of deterministic
// pseudo-token ids plus an attention mask, padding or truncating to
// maxTokens. Word hashes stand in for learned subword ids; see
// OnnxEmbedder.
func tokenize(text string, maxTokens, vocabSize int) (ids, mask []int64) {
	words := strings.Fields(strings.ToLower(text))
	ids = make([]int64, maxTokens)
	mask = make([]int64, maxTokens)
	for i := 0; i < maxTokens; i++ {
		if i >= len(words) {
			break
		}
		h := fnv.New32a()
		h.Write([]byte(words[i]))
		ids[i] = int64(h.Sum32() % uint32(vocabSize))
		mask[i] = 1
	}
	return ids, mask
}

// HashEmbedder is a deterministic, model-free Embedder used when no ONNX
// model is configured or loadable: a bag-of-words hashed feature vector,
// unit-normalized. It satisfies the same determinism and dimensionality
// contract as OnnxEmbedder so Index/Retriever code is agnostic to which
// implementation is wired in.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a HashEmbedder producing dim-dimensional
// vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = Dim
	}
	return &HashEmbedder{dim: dim}
}

// Embed hashes each word of text into a bucket of the output vector,
// accumulating signed contributions, then unit-normalizes the result.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, fmt.Errorf("embedding text must be non-empty")
	}

	vec := make([]float32, h.dim)
	for _, w := range words {
		hv := fnv.New32a()
		hv.Write([]byte(w))
		sum := hv.Sum32()
		bucket := int(sum % uint32(h.dim))
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	return normalize(vec), nil
}

// Close is a no-op; HashEmbedder holds no external resources.
func (h *HashEmbedder) Close() error { return nil }
