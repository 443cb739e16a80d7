// Package retriever turns a free-text query into an ordered list of
// candidate segments and presets, combining an Embedder, a vector Index,
// and the Store.
package retriever

import (
	"context"
	"fmt"

	"hibikido/internal/analysis"
	"hibikido/internal/embedding"
	"hibikido/internal/index"
	"hibikido/internal/store"
)

// Hit is one candidate result: score plus everything the orchestrator (for
// segments) or a future preset channel needs to announce it.
type Hit struct {
	Score        float64
	Collection   string // "segments" or "presets"
	EntityID     int
	Path         string
	Description  string
	Start        float64
	End          float64
	MetadataJSON string

	// Fields populated only for segment hits, consumed by the Orchestrator.
	SegmentID int
	Bark      [24]float64
	Duration  float64
}

// Retriever combines an Embedder, an Index, and the Store into semantic
// search over segments and presets.
type Retriever struct {
	embedder embedding.Embedder
	idx      *index.Index
	store    *store.Store
}

// New constructs a Retriever over the given collaborators.
func New(embedder embedding.Embedder, idx *index.Index, st *store.Store) *Retriever {
	return &Retriever{embedder: embedder, idx: idx, store: st}
}

// Search embeds query, searches the Index for its top-k nearest neighbors,
// resolves each hit back to a Segment or Preset via the Store, and filters
// out anything scoring below minScore. Results are returned in descending
// score order (the Index's own order is preserved).
func (r *Retriever) Search(ctx context.Context, query string, topK int, minScore float64) ([]Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be non-empty")
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	raw, err := r.idx.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		score := float64(h.Score)
		if score < minScore {
			continue
		}
		if hit, ok := r.resolveSegment(h.ID, score); ok {
			hits = append(hits, hit)
			continue
		}
		if hit, ok := r.resolvePreset(h.ID, score); ok {
			hits = append(hits, hit)
		}
		// An index row with no owning entity (e.g. a stale id surviving a
		// crash between Index.Add and Store.Update) is silently skipped;
		// rebuild_index is the recovery path.
	}
	return hits, nil
}

func (r *Retriever) resolveSegment(indexID int, score float64) (Hit, bool) {
	seg, ok := r.store.FindSegmentByIndexID(indexID)
	if !ok {
		return Hit{}, false
	}
	desc := seg.Description
	if desc == "" {
		desc = seg.GeneratedDescription
	}
	return Hit{
		Score:        score,
		Collection:   "segments",
		EntityID:     seg.ID,
		Path:         seg.RecordingPath,
		Description:  desc,
		Start:        seg.Start,
		End:          seg.End,
		MetadataJSON: fmt.Sprintf(`{"segment_id":"%d"}`, seg.ID),
		SegmentID:    seg.ID,
		Bark:         analysis.UnitBark(seg.BarkRaw, seg.BarkNorm),
		Duration:     seg.Duration,
	}, true
}

func (r *Retriever) resolvePreset(indexID int, score float64) (Hit, bool) {
	p, ok := r.store.FindPresetByIndexID(indexID)
	if !ok {
		return Hit{}, false
	}
	return Hit{
		Score:        score,
		Collection:   "presets",
		EntityID:     p.ID,
		Path:         p.EffectPath,
		Description:  p.Description,
		MetadataJSON: fmt.Sprintf(`{"preset_id":"%d"}`, p.ID),
	}, true
}
