package embedding

import "log"

// New resolves the configured model to a working Embedder: if the model
// file exists on disk, an OnnxEmbedder is constructed against it;
// otherwise a HashEmbedder stands in so the service remains usable before
// the model is downloaded.
func New(modelsDir, modelName string) Embedder {
	manager, err := NewModelManager(modelsDir)
	if err != nil {
		log.Printf("embedding: model manager unavailable, using hash embedder: %v", err)
		return NewHashEmbedder(Dim)
	}

	info := GetModelByID(modelName)
	dim := Dim
	if info != nil {
		dim = info.Dim
	}

	if manager.IsDownloaded(modelName) {
		cfg := DefaultOnnxConfig(manager.ModelPath(modelName))
		cfg.Dim = dim
		embedder, err := NewOnnxEmbedder(cfg)
		if err == nil {
			return embedder
		}
		log.Printf("embedding: failed to load onnx model %s, using hash embedder: %v", modelName, err)
	}
	return NewHashEmbedder(dim)
}
