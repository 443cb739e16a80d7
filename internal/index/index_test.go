package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hibikido/internal/embedding"
	"hibikido/internal/store"
)

// unitVec returns a dim-dimensional unit vector pointing along axis i.
func unitVec(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	idx := New(4)
	for want := 0; want < 3; want++ {
		id, err := idx.Add(unitVec(4, want))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 3, idx.Len())
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	idx := New(4)
	_, err := idx.Add(unitVec(8, 0))
	assert.Error(t, err)
}

func TestSearchReturnsDescendingScores(t *testing.T) {
	idx := New(4)
	_, err := idx.Add(unitVec(4, 0))
	require.NoError(t, err)
	_, err = idx.Add(unitVec(4, 1))
	require.NoError(t, err)
	_, err = idx.Add([]float32{0.8, 0.6, 0, 0})
	require.NoError(t, err)

	hits, err := idx.Search(unitVec(4, 0), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].ID)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-6)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestSearchHonorsTopK(t *testing.T) {
	idx := New(2)
	for i := 0; i < 5; i++ {
		_, err := idx.Add([]float32{1, float32(i) / 10})
		require.NoError(t, err)
	}
	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	idx := New(3)
	_, err := idx.Add([]float32{1, 0, 0})
	require.NoError(t, err)
	_, err = idx.Add([]float32{0, 0.6, 0.8})
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dim())
	assert.Equal(t, 2, loaded.Len())

	// Same query, same hits, same scores.
	want, err := idx.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	got, err := loaded.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Ids continue from where the saved index left off.
	id, err := loaded.Add([]float32{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestLoadMissingFileYieldsEmptyIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "absent.bin"), 8)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 8, idx.Dim())
}

func TestRebuildReassignsIDsAndUpdatesStore(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := 99
	segA, err := st.Segments.Add(store.Segment{RecordingPath: "a.wav", Start: 0, End: 1, EmbeddingText: "low hum", IndexID: &stale, Duration: 1, CreatedAt: now})
	require.NoError(t, err)
	segB, err := st.Segments.Add(store.Segment{RecordingPath: "b.wav", Start: 0, End: 1, EmbeddingText: "high whistle", Duration: 1, CreatedAt: now})
	require.NoError(t, err)
	// No embedding text: must stay out of the index.
	segC, err := st.Segments.Add(store.Segment{RecordingPath: "c.wav", Start: 0, End: 1, Duration: 1, CreatedAt: now})
	require.NoError(t, err)
	preset, err := st.Presets.Add(store.Preset{EffectPath: "fx", Description: "shimmer", EmbeddingText: "shimmer reverb", CreatedAt: now})
	require.NoError(t, err)

	emb := embedding.NewHashEmbedder(16)
	idx := New(16)
	require.NoError(t, Rebuild(context.Background(), idx, st, emb))

	assert.Equal(t, 3, idx.Len())

	for _, id := range []int{segA.ID, segB.ID} {
		seg, ok := st.Segments.Get(id)
		require.True(t, ok)
		require.NotNil(t, seg.IndexID)

		// The indexed row must equal Embedder(embedding_text): its
		// self-similarity score is 1.
		vec, err := emb.Embed(context.Background(), seg.EmbeddingText)
		require.NoError(t, err)
		hits, err := idx.Search(vec, 1)
		require.NoError(t, err)
		assert.Equal(t, *seg.IndexID, hits[0].ID)
		assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
	}

	unindexed, ok := st.Segments.Get(segC.ID)
	require.True(t, ok)
	assert.Nil(t, unindexed.IndexID)

	p, ok := st.Presets.Get(preset.ID)
	require.True(t, ok)
	require.NotNil(t, p.IndexID)

	// No stale ids survive: every assigned id is within the new range.
	seen := map[int]bool{}
	for _, seg := range st.Segments.All() {
		if seg.IndexID != nil {
			assert.Less(t, *seg.IndexID, idx.Len())
			assert.False(t, seen[*seg.IndexID])
			seen[*seg.IndexID] = true
		}
	}
}
