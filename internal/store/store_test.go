package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSegment(path, description string) Segment {
	return Segment{
		RecordingPath: path,
		Start:         0,
		End:           1,
		Description:   description,
		BarkRaw:       [24]float64{0.5, 0.5},
		BarkNorm:      0.7071,
		OnsetsMid:     []float64{0.1, 0.5},
		Duration:      2,
		EmbeddingText: description,
		CreatedAt:     testTime,
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	first, err := st.Segments.Add(testSegment("a.wav", "one"))
	require.NoError(t, err)
	second, err := st.Segments.Add(testSegment("b.wav", "two"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
}

func TestRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	rec, err := st.Recordings.Add(Recording{Path: "a.wav", Description: "drone", Duration: 2, CreatedAt: testTime})
	require.NoError(t, err)
	seg, err := st.Segments.Add(testSegment("a.wav", "drone"))
	require.NoError(t, err)
	_, err = st.Effects.Add(Effect{Path: "reverb.so", Description: "hall"})
	require.NoError(t, err)
	_, err = st.Presets.Add(Preset{EffectPath: "reverb.so", Description: "long tail", Parameters: []float64{0.9, 0.2}, CreatedAt: testTime})
	require.NoError(t, err)
	_, err = st.Sessions.Add(Session{Query: "drone", QueuedCount: 1, CreatedAt: testTime})
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, st.Recordings.All(), reopened.Recordings.All())
	assert.Equal(t, st.Segments.All(), reopened.Segments.All())
	assert.Equal(t, st.Effects.All(), reopened.Effects.All())
	assert.Equal(t, st.Presets.All(), reopened.Presets.All())
	assert.Equal(t, st.Sessions.All(), reopened.Sessions.All())

	// Id assignment continues where it left off.
	next, err := reopened.Recordings.Add(Recording{Path: "b.wav", CreatedAt: testTime})
	require.NoError(t, err)
	assert.Equal(t, rec.ID+1, next.ID)

	got, ok := reopened.Segments.Get(seg.ID)
	require.True(t, ok)
	assert.Equal(t, seg, got)
}

func TestUpdateReplacesAndPersists(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	seg, err := st.Segments.Add(testSegment("a.wav", "before"))
	require.NoError(t, err)

	seg.Description = "after"
	id := 7
	seg.IndexID = &id
	require.NoError(t, st.Segments.Update(seg.ID, seg))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, ok := reopened.Segments.Get(seg.ID)
	require.True(t, ok)
	assert.Equal(t, "after", got.Description)
	require.NotNil(t, got.IndexID)
	assert.Equal(t, 7, *got.IndexID)
}

func TestUpdateUnknownIDErrors(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, st.Segments.Update(42, testSegment("a.wav", "x")))
}

func TestFindRecordingByPath(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = st.Recordings.Add(Recording{Path: "a.wav", CreatedAt: testTime})
	require.NoError(t, err)

	rec, ok := st.FindRecordingByPath("a.wav")
	require.True(t, ok)
	assert.Equal(t, "a.wav", rec.Path)

	_, ok = st.FindRecordingByPath("missing.wav")
	assert.False(t, ok)
}

func TestFindSegmentByIndexID(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	seg := testSegment("a.wav", "x")
	id := 3
	seg.IndexID = &id
	added, err := st.Segments.Add(seg)
	require.NoError(t, err)

	got, ok := st.FindSegmentByIndexID(3)
	require.True(t, ok)
	assert.Equal(t, added.ID, got.ID)

	_, ok = st.FindSegmentByIndexID(99)
	assert.False(t, ok)
}

func TestCountsEmbeddingsOnlyIndexedEntities(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	indexed := testSegment("a.wav", "indexed")
	id := 0
	indexed.IndexID = &id
	_, err = st.Segments.Add(indexed)
	require.NoError(t, err)
	_, err = st.Segments.Add(testSegment("b.wav", "unindexed"))
	require.NoError(t, err)

	pid := 1
	_, err = st.Presets.Add(Preset{EffectPath: "fx", Description: "p", IndexID: &pid, CreatedAt: testTime})
	require.NoError(t, err)

	counts := st.Counts()
	assert.Equal(t, 2, counts.Segments)
	assert.Equal(t, 1, counts.Presets)
	assert.Equal(t, 2, counts.Embeddings)
}

func TestGetSegmentFieldDottedPaths(t *testing.T) {
	seg := testSegment("a.wav", "x")
	seg.Features.Centroid = 1234.5

	cases := []struct {
		path string
		want any
	}{
		{"bark_norm", 0.7071},
		{"recording_path", "a.wav"},
		{"features.centroid", 1234.5},
		{"duration", 2.0},
	}
	for _, tc := range cases {
		got, err := GetSegmentField(seg, tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}

	_, err := GetSegmentField(seg, "no_such_field")
	assert.Error(t, err)
	_, err = GetSegmentField(seg, "bark_norm.deeper")
	assert.Error(t, err)
}

func TestCorruptCollectionFileFailsOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "segments.json"), []byte("{not json"), 0644))
	_, err := Open(dir)
	assert.Error(t, err)
}
