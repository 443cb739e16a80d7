package store

import (
	"fmt"
	"path/filepath"
)

// Store is the durable catalog: one collection per entity kind, rooted at
// a data directory.
type Store struct {
	Recordings *collection[Recording, *Recording]
	Segments   *collection[Segment, *Segment]
	Effects    *collection[Effect, *Effect]
	Presets    *collection[Preset, *Preset]
	Sessions   *collection[Session, *Session]
}

// Open loads (or initializes) every collection document under dataDir.
func Open(dataDir string) (*Store, error) {
	recordings, err := newCollection[Recording, *Recording](filepath.Join(dataDir, "recordings.json"))
	if err != nil {
		return nil, fmt.Errorf("open recordings: %w", err)
	}
	segments, err := newCollection[Segment, *Segment](filepath.Join(dataDir, "segments.json"))
	if err != nil {
		return nil, fmt.Errorf("open segments: %w", err)
	}
	effects, err := newCollection[Effect, *Effect](filepath.Join(dataDir, "effects.json"))
	if err != nil {
		return nil, fmt.Errorf("open effects: %w", err)
	}
	presets, err := newCollection[Preset, *Preset](filepath.Join(dataDir, "presets.json"))
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	sessions, err := newCollection[Session, *Session](filepath.Join(dataDir, "sessions.json"))
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	return &Store{
		Recordings: recordings,
		Segments:   segments,
		Effects:    effects,
		Presets:    presets,
		Sessions:   sessions,
	}, nil
}

// FindSegmentByIndexID returns the Segment whose IndexID matches id, if any.
func (s *Store) FindSegmentByIndexID(id int) (Segment, bool) {
	for _, seg := range s.Segments.All() {
		if seg.IndexID != nil && *seg.IndexID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// FindPresetByIndexID returns the Preset whose IndexID matches id, if any.
func (s *Store) FindPresetByIndexID(id int) (Preset, bool) {
	for _, p := range s.Presets.All() {
		if p.IndexID != nil && *p.IndexID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// FindRecordingByPath returns the Recording whose Path matches, if any.
func (s *Store) FindRecordingByPath(path string) (Recording, bool) {
	for _, r := range s.Recordings.All() {
		if r.Path == path {
			return r, true
		}
	}
	return Recording{}, false
}

// GetSegmentField resolves a dotted field path on the segment with the
// given id (e.g. "features.centroid", "bark_norm").
func GetSegmentField(seg Segment, path string) (any, error) {
	return fieldByPath(seg, path)
}

// Counts reports entity counts for the `stats` command.
type Counts struct {
	Recordings int
	Segments   int
	Effects    int
	Presets    int
	Embeddings int
}

// Counts returns current collection sizes. Embeddings counts segments and
// presets that carry a non-nil IndexID.
func (s *Store) Counts() Counts {
	embeddings := 0
	for _, seg := range s.Segments.All() {
		if seg.IndexID != nil {
			embeddings++
		}
	}
	for _, p := range s.Presets.All() {
		if p.IndexID != nil {
			embeddings++
		}
	}
	return Counts{
		Recordings: s.Recordings.Len(),
		Segments:   s.Segments.Len(),
		Effects:    s.Effects.Len(),
		Presets:    s.Presets.Len(),
		Embeddings: embeddings,
	}
}
