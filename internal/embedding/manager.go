package embedding

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// ProgressCallback reports download progress for a given model.
type ProgressCallback func(modelID string, progress float64, status ModelStatus, err error)

// ModelManager tracks on-device embedding models: which are downloaded,
// which is active, and drives downloads of the rest.
type ModelManager struct {
	modelsDir   string
	activeModel string
	downloads   map[string]context.CancelFunc
	mu          sync.RWMutex
	onProgress  ProgressCallback
}

// NewModelManager creates a ModelManager rooted at modelsDir, creating the
// directory if absent.
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}
	return &ModelManager{modelsDir: modelsDir, downloads: make(map[string]context.CancelFunc)}, nil
}

// SetProgressCallback installs cb as the download-progress sink.
func (m *ModelManager) SetProgressCallback(cb ProgressCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress = cb
}

// ModelPath returns the on-disk path for modelID, or "" if unknown.
func (m *ModelManager) ModelPath(modelID string) string {
	if GetModelByID(modelID) == nil {
		return ""
	}
	return filepath.Join(m.modelsDir, modelID+".onnx")
}

// IsDownloaded reports whether modelID's file exists and is plausibly
// complete (larger than 1MB; every registry entry is far larger).
func (m *ModelManager) IsDownloaded(modelID string) bool {
	path := m.ModelPath(modelID)
	if path == "" {
		return false
	}
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.Size() > 1_000_000
}

// ActiveModel returns the id of the currently selected model.
func (m *ModelManager) ActiveModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeModel
}

// SetActiveModel selects modelID as active, failing if it is not yet
// downloaded.
func (m *ModelManager) SetActiveModel(modelID string) error {
	if !m.IsDownloaded(modelID) {
		return fmt.Errorf("model %s is not downloaded", modelID)
	}
	m.mu.Lock()
	m.activeModel = modelID
	m.mu.Unlock()
	log.Printf("embedding: active model set to %s", modelID)
	return nil
}

// States returns every Registry entry paired with its on-device status.
func (m *ModelManager) States() []ModelState {
	m.mu.RLock()
	active := m.activeModel
	downloading := make(map[string]bool, len(m.downloads))
	for id := range m.downloads {
		downloading[id] = true
	}
	m.mu.RUnlock()

	states := make([]ModelState, len(Registry))
	for i, info := range Registry {
		state := ModelState{ModelInfo: info, Path: m.ModelPath(info.ID)}
		switch {
		case downloading[info.ID]:
			state.Status = ModelStatusDownloading
		case m.IsDownloaded(info.ID):
			if info.ID == active {
				state.Status = ModelStatusActive
			} else {
				state.Status = ModelStatusDownloaded
			}
		default:
			state.Status = ModelStatusNotDownloaded
		}
		states[i] = state
	}
	return states
}

// Download fetches modelID and returns when the download has finished or
// failed, tracking it so a concurrent download of the same model is
// rejected.
func (m *ModelManager) Download(ctx context.Context, modelID string) error {
	info := GetModelByID(modelID)
	if info == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	m.mu.Lock()
	if _, active := m.downloads[modelID]; active {
		m.mu.Unlock()
		return fmt.Errorf("model %s is already downloading", modelID)
	}
	downloadCtx, cancel := context.WithCancel(ctx)
	m.downloads[modelID] = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.downloads, modelID)
		m.mu.Unlock()
	}()

	report := func(progress float64) {
		m.mu.RLock()
		cb := m.onProgress
		m.mu.RUnlock()
		if cb != nil {
			cb(modelID, progress, ModelStatusDownloading, nil)
		}
	}

	path := m.ModelPath(modelID)
	if err := DownloadFile(downloadCtx, info.DownloadURL, path, info.SizeBytes, report); err != nil {
		m.mu.RLock()
		cb := m.onProgress
		m.mu.RUnlock()
		if cb != nil {
			cb(modelID, 0, ModelStatusError, err)
		}
		return fmt.Errorf("download model %s: %w", modelID, err)
	}

	m.mu.RLock()
	cb := m.onProgress
	m.mu.RUnlock()
	if cb != nil {
		cb(modelID, 100, ModelStatusDownloaded, nil)
	}
	return nil
}
