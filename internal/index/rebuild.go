package index

import (
	"context"
	"fmt"

	"hibikido/internal/embedding"
	"hibikido/internal/store"
)

// Rebuild clears idx, then re-adds every segment and preset in st whose
// EmbeddingText is non-empty, writing each entity's new IndexID back to
// the Store in the same pass.
func Rebuild(ctx context.Context, idx *Index, st *store.Store, embedder embedding.Embedder) error {
	idx.Reset()

	for _, seg := range st.Segments.All() {
		if seg.EmbeddingText == "" {
			continue
		}
		vec, err := embedder.Embed(ctx, seg.EmbeddingText)
		if err != nil {
			return fmt.Errorf("embed segment %d: %w", seg.ID, err)
		}
		id, err := idx.Add(vec)
		if err != nil {
			return fmt.Errorf("index segment %d: %w", seg.ID, err)
		}
		seg.IndexID = &id
		if err := st.Segments.Update(seg.ID, seg); err != nil {
			return fmt.Errorf("update segment %d: %w", seg.ID, err)
		}
	}

	for _, p := range st.Presets.All() {
		if p.EmbeddingText == "" {
			continue
		}
		vec, err := embedder.Embed(ctx, p.EmbeddingText)
		if err != nil {
			return fmt.Errorf("embed preset %d: %w", p.ID, err)
		}
		id, err := idx.Add(vec)
		if err != nil {
			return fmt.Errorf("index preset %d: %w", p.ID, err)
		}
		p.IndexID = &id
		if err := st.Presets.Update(p.ID, p); err != nil {
			return fmt.Errorf("update preset %d: %w", p.ID, err)
		}
	}

	return nil
}
