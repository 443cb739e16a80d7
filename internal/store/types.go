// Package store is the durable catalog of recordings, segments, effects,
// presets, and sessions: one JSON array document per collection, with
// integer ids assigned on create.
package store

import "time"

// Recording is metadata for a source audio file.
type Recording struct {
	ID                   int           `json:"id"`
	Path                 string        `json:"path"`
	Description          string        `json:"description"`
	Duration             float64       `json:"duration"`
	Features             FeatureRecord `json:"features"`
	GeneratedDescription string        `json:"generated_description,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}

// Segment is a normalized time slice of a Recording.
type Segment struct {
	ID                   int           `json:"id"`
	RecordingPath        string        `json:"recording_path"`
	Start                float64       `json:"start"`
	End                  float64       `json:"end"`
	Description          string        `json:"description"`
	GeneratedDescription string        `json:"generated_description,omitempty"`
	Features             FeatureRecord `json:"features"`
	BarkRaw              [24]float64   `json:"bark_raw"`
	BarkNorm             float64       `json:"bark_norm"`
	OnsetsLowMid         []float64     `json:"onsets_low_mid"`
	OnsetsMid            []float64     `json:"onsets_mid"`
	OnsetsHighMid        []float64     `json:"onsets_high_mid"`
	Duration             float64       `json:"duration"`
	IndexID              *int          `json:"index_id,omitempty"`
	EmbeddingText        string        `json:"embedding_text"`
	CreatedAt            time.Time     `json:"created_at"`
}

// FeatureRecord is the JSON-serializable mirror of analysis.Features.
type FeatureRecord struct {
	Duration  float64    `json:"duration"`
	RMSMean   float64    `json:"rms_mean"`
	RMSStd    float64    `json:"rms_std"`
	Centroid  float64    `json:"centroid"`
	Rolloff   float64    `json:"rolloff"`
	Bandwidth float64    `json:"bandwidth"`
	MFCC      [13]float64 `json:"mfcc"`
	Chroma    [12]float64 `json:"chroma"`
	Contrast  [7]float64  `json:"contrast"`

	AttackTime     float64 `json:"attack_time"`
	DecayTime      float64 `json:"decay_time"`
	SustainedLevel float64 `json:"sustained_level"`
	DynamicRange   float64 `json:"dynamic_range"`
	OnsetRate      float64 `json:"onset_rate"`
	Tempo          float64 `json:"tempo"`

	HarmonicRatio float64 `json:"harmonic_ratio"`
	PitchSalience float64 `json:"pitch_salience"`

	SpectralEntropy      float64 `json:"spectral_entropy"`
	SpectralIrregularity float64 `json:"spectral_irregularity"`
	Roughness            float64 `json:"roughness"`

	Bands [8]float64 `json:"bands"`
}

// Effect is a processing plug-in descriptor.
type Effect struct {
	ID          int    `json:"id"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Preset is a parameterization of an Effect.
type Preset struct {
	ID            int       `json:"id"`
	EffectPath    string    `json:"effect_path"`
	Description   string    `json:"description"`
	Parameters    []float64 `json:"parameters"`
	IndexID       *int      `json:"index_id,omitempty"`
	EmbeddingText string    `json:"embedding_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is an append-only log entry of an invocation and the
// announcements it produced.
type Session struct {
	ID            int       `json:"id"`
	Query         string    `json:"query"`
	QueuedCount   int       `json:"queued_count"`
	Announcements []string  `json:"announcements,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
