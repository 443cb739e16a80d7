package controller

import (
	"strings"

	"hibikido/internal/analysis"
	"hibikido/internal/store"
)

// toFeatureRecord copies an analysis.Features record into its
// JSON-serializable Store mirror. The two types are kept separate so the
// analysis package never depends on the Store's persistence tags.
func toFeatureRecord(f analysis.Features) store.FeatureRecord {
	return store.FeatureRecord{
		Duration:  f.Duration,
		RMSMean:   f.RMSMean,
		RMSStd:    f.RMSStd,
		Centroid:  f.Centroid,
		Rolloff:   f.Rolloff,
		Bandwidth: f.Bandwidth,
		MFCC:      f.MFCC,
		Chroma:    f.Chroma,
		Contrast:  f.Contrast,

		AttackTime:     f.AttackTime,
		DecayTime:      f.DecayTime,
		SustainedLevel: f.SustainedLevel,
		DynamicRange:   f.DynamicRange,
		OnsetRate:      f.OnsetRate,
		Tempo:          f.Tempo,

		HarmonicRatio: f.HarmonicRatio,
		PitchSalience: f.PitchSalience,

		SpectralEntropy:      f.SpectralEntropy,
		SpectralIrregularity: f.SpectralIrregularity,
		Roughness:            f.Roughness,

		Bands: f.Bands,
	}
}

// composeEmbeddingText deterministically derives the text an Embedder
// sees for a segment: segment description, parent-recording description,
// and any batch-provided tags, space-joined and lowercased. This function
// must stay stable across releases or the Index must be flagged for a
// rebuild.
func composeEmbeddingText(segmentDescription, recordingDescription string, tags []string) string {
	parts := make([]string, 0, 2+len(tags))
	if segmentDescription != "" {
		parts = append(parts, segmentDescription)
	}
	if recordingDescription != "" && recordingDescription != segmentDescription {
		parts = append(parts, recordingDescription)
	}
	parts = append(parts, tags...)
	return strings.ToLower(strings.Join(parts, " "))
}
