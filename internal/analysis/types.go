// Package analysis computes perceptual and semantic-adjacent descriptors
// from decoded PCM audio: spectral/temporal/harmonic/perceptual features,
// Bark-band energy vectors, and multi-band onset timelines.
package analysis

// Features is the fixed-shape descriptor record produced by the
// FeatureExtractor. Every field is finite; any NaN encountered mid-pipeline
// is coerced to zero before it reaches this struct.
type Features struct {
	Duration float64 `json:"duration"`
	RMSMean  float64 `json:"rms_mean"`
	RMSStd   float64 `json:"rms_std"`

	Centroid  float64    `json:"centroid"`
	Rolloff   float64    `json:"rolloff"`
	Bandwidth float64    `json:"bandwidth"`
	MFCC      [13]float64 `json:"mfcc"`
	Chroma    [12]float64 `json:"chroma"`
	Contrast  [7]float64  `json:"contrast"`

	AttackTime      float64 `json:"attack_time"`
	DecayTime       float64 `json:"decay_time"`
	SustainedLevel  float64 `json:"sustained_level"`
	DynamicRange    float64 `json:"dynamic_range"`
	OnsetRate       float64 `json:"onset_rate"`
	Tempo           float64 `json:"tempo"`

	HarmonicRatio  float64 `json:"harmonic_ratio"`
	PitchSalience  float64 `json:"pitch_salience"`

	SpectralEntropy      float64 `json:"spectral_entropy"`
	SpectralIrregularity float64 `json:"spectral_irregularity"`
	Roughness            float64 `json:"roughness"`

	// Bands holds fractional energy for the 8 named bands (sub-bass ..
	// air); they sum to ~1.
	Bands [8]float64 `json:"bands"`
}

// BandNames is the fixed ordering of the 8 Features.Bands entries.
var BandNames = [8]string{
	"sub_bass", "bass", "low_mid", "mid",
	"upper_mid", "presence", "brilliance", "air",
}

// bandEdgesHz are the Hz boundaries for the 8 perceptual bands; the last
// band runs to Nyquist and is resolved at call time.
var bandEdgesHz = [9]float64{20, 60, 250, 500, 2000, 4000, 6000, 10000, -1}

// BarkResult is the output of the BarkAnalyzer: 24 raw (non-negative,
// frame-averaged) Bark-band energies, their L2 norm, and the duration of
// the analyzed slice. Cosine comparisons use Raw/Norm (see UnitBark); the
// raw energies are kept so a segment can be re-analyzed without losing the
// original energy scale.
type BarkResult struct {
	Raw      [24]float64
	Norm     float64
	Duration float64
}

// bark critical-band edges in Hz (25 edges -> 24 bands).
var barkEdgesHz = [25]float64{
	0, 100, 200, 300, 400, 510, 630, 770, 920, 1080, 1270, 1480, 1720,
	2000, 2320, 2700, 3150, 3700, 4400, 5300, 6400, 7700, 9500, 12000, 15500,
}

// OnsetResult is the output of the EnergyAnalyzer: three ascending lists of
// onset timestamps (seconds from the start of the analyzed slice).
type OnsetResult struct {
	LowMid  []float64
	Mid     []float64
	HighMid []float64
}

// Analysis is the unified record returned by the AudioAnalyzer, composing
// FeatureExtractor + BarkAnalyzer + EnergyAnalyzer over the same PCM slice.
type Analysis struct {
	Features   Features
	BarkRaw    [24]float64
	BarkNorm   float64
	OnsetsLM   []float64
	OnsetsMid  []float64
	OnsetsHM   []float64
	Duration   float64
}
