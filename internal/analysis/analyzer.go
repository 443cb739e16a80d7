package analysis

// AudioAnalyzer composes FeatureExtractor, BarkAnalyzer, and EnergyAnalyzer
// over the same decoded PCM slice, producing the unified Analysis record an
// ingest operation stores alongside a segment.
type AudioAnalyzer struct {
	features *FeatureExtractor
	bark     *BarkAnalyzer
	onsets   *EnergyAnalyzer
}

// NewAudioAnalyzer constructs an AudioAnalyzer. It holds no mutable state;
// one value can be shared and called concurrently.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		features: NewFeatureExtractor(),
		bark:     NewBarkAnalyzer(),
		onsets:   NewEnergyAnalyzer(),
	}
}

// Analyze runs all three collaborators over y (mono PCM sampled at sr Hz)
// and returns the combined Analysis.
func (a *AudioAnalyzer) Analyze(y []float64, sr int) Analysis {
	feats := a.features.Extract(y, sr)
	bark := a.bark.Analyze(y, sr)
	onsets := a.onsets.Analyze(y, sr)

	return Analysis{
		Features:  feats,
		BarkRaw:   bark.Raw,
		BarkNorm:  bark.Norm,
		OnsetsLM:  onsets.LowMid,
		OnsetsMid: onsets.Mid,
		OnsetsHM:  onsets.HighMid,
		Duration:  feats.Duration,
	}
}
