package embedding

// ModelInfo describes an available sentence-embedding model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Dim         int    `json:"dim"`
	SizeBytes   int64  `json:"sizeBytes"`
	Description string `json:"description"`
	DownloadURL string `json:"downloadUrl"`
	Recommended bool   `json:"recommended,omitempty"`
}

// ModelStatus is the on-device lifecycle state of a model.
type ModelStatus string

const (
	ModelStatusNotDownloaded ModelStatus = "not_downloaded"
	ModelStatusDownloading   ModelStatus = "downloading"
	ModelStatusDownloaded    ModelStatus = "downloaded"
	ModelStatusActive        ModelStatus = "active"
	ModelStatusError         ModelStatus = "error"
)

// ModelState pairs a ModelInfo with its current on-device status.
type ModelState struct {
	ModelInfo
	Status   ModelStatus `json:"status"`
	Progress float64     `json:"progress,omitempty"`
	Error    string      `json:"error,omitempty"`
	Path     string      `json:"path,omitempty"`
}

// Registry lists the embedding models this service knows how to fetch.
// embedding.model_name selects one by ID.
var Registry = []ModelInfo{
	{
		ID:          "minilm-l6-v2",
		Name:        "all-MiniLM-L6-v2",
		Dim:         384,
		SizeBytes:   90_900_000,
		Description: "Compact general-purpose sentence embedding model, 384 dimensions",
		DownloadURL: "https://huggingface.co/sentence-transformers/all-MiniLM-L6-v2/resolve/main/onnx/model.onnx",
		Recommended: true,
	},
	{
		ID:          "minilm-l12-v2",
		Name:        "all-MiniLM-L12-v2",
		Dim:         384,
		SizeBytes:   133_900_000,
		Description: "Deeper MiniLM variant, higher quality at roughly the same dimension",
		DownloadURL: "https://huggingface.co/sentence-transformers/all-MiniLM-L12-v2/resolve/main/onnx/model.onnx",
	},
	{
		ID:          "bge-small-en",
		Name:        "BAAI/bge-small-en-v1.5",
		Dim:         384,
		SizeBytes:   133_000_000,
		Description: "Retrieval-tuned small embedding model",
		DownloadURL: "https://huggingface.co/BAAI/bge-small-en-v1.5/resolve/main/onnx/model.onnx",
	},
}

// GetModelByID looks up a Registry entry by ID, returning nil if absent.
func GetModelByID(id string) *ModelInfo {
	for i := range Registry {
		if Registry[i].ID == id {
			return &Registry[i]
		}
	}
	return nil
}
