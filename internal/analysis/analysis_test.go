package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freqHz float64, durationSeconds float64, sr int) []float64 {
	n := int(durationSeconds * float64(sr))
	y := make([]float64, n)
	for i := range y {
		y[i] = 0.5 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sr))
	}
	return y
}

// clickTrain is silence with a unit impulse every intervalSeconds.
func clickTrain(durationSeconds, intervalSeconds float64, sr int) []float64 {
	n := int(durationSeconds * float64(sr))
	y := make([]float64, n)
	step := int(intervalSeconds * float64(sr))
	for i := 0; i < n; i += step {
		y[i] = 1
	}
	return y
}

func TestBarkNormMatchesRawVector(t *testing.T) {
	b := NewBarkAnalyzer()
	result := b.Analyze(sine(440, 2.0, 32000), 32000)

	require.Greater(t, result.Norm, 0.0)
	var sumSq float64
	for _, v := range result.Raw {
		require.GreaterOrEqual(t, v, 0.0)
		sumSq += v * v
	}
	assert.InDelta(t, result.Norm, math.Sqrt(sumSq), 1e-6)
	assert.InDelta(t, 2.0, result.Duration, 1e-9)
}

func TestBarkSilentBufferYieldsZeroVector(t *testing.T) {
	b := NewBarkAnalyzer()
	result := b.Analyze(make([]float64, 32000), 32000)

	assert.Equal(t, 0.0, result.Norm)
	for _, v := range result.Raw {
		assert.Equal(t, 0.0, v)
	}
}

func TestBark440HzEnergyLandsInItsCriticalBand(t *testing.T) {
	b := NewBarkAnalyzer()
	result := b.Analyze(sine(440, 1.0, 32000), 32000)

	// 440 Hz falls in band 4 (400-510 Hz); spectral leakage may spill into
	// neighbors but the peak band must be adjacent to it.
	peak := 0
	for i, v := range result.Raw {
		if v > result.Raw[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 4, peak, 1)
}

func TestUnitBarkIsUnitLength(t *testing.T) {
	b := NewBarkAnalyzer()
	result := b.Analyze(sine(440, 1.0, 32000), 32000)

	unit := UnitBark(result.Raw, result.Norm)
	var sumSq float64
	for _, v := range unit {
		sumSq += v * v
	}
	assert.InDelta(t, 1.0, sumSq, 1e-9)
	assert.InDelta(t, 1.0, CosineBark(unit, unit), 1e-9)
}

func TestUnitBarkZeroNormYieldsZeroVector(t *testing.T) {
	unit := UnitBark([24]float64{1, 2, 3}, 0)
	assert.Equal(t, [24]float64{}, unit)
}

func TestOnsetsAscendingWithinBoundsAndGapped(t *testing.T) {
	e := NewEnergyAnalyzer()
	duration := 2.0
	result := e.Analyze(clickTrain(duration, 0.25, 16000), 16000)

	for _, onsets := range [][]float64{result.LowMid, result.Mid, result.HighMid} {
		for i, ts := range onsets {
			assert.GreaterOrEqual(t, ts, 0.0)
			assert.LessOrEqual(t, ts, duration)
			if i > 0 {
				assert.Greater(t, ts, onsets[i-1], "onsets must be strictly increasing")
				assert.GreaterOrEqual(t, ts-onsets[i-1], minInterOnsetSeconds-1e-9)
			}
		}
	}

	// Impulses are broadband: the mid band must see at least 3 of the 8 clicks.
	assert.GreaterOrEqual(t, len(result.Mid), 3)
}

func TestOnsetsSilenceProducesNone(t *testing.T) {
	e := NewEnergyAnalyzer()
	result := e.Analyze(make([]float64, 32000), 16000)
	assert.Empty(t, result.LowMid)
	assert.Empty(t, result.Mid)
	assert.Empty(t, result.HighMid)
}

func TestFeaturesFiniteForSine(t *testing.T) {
	f := NewFeatureExtractor().Extract(sine(440, 1.0, 16000), 16000)

	scalars := map[string]float64{
		"duration":              f.Duration,
		"rms_mean":              f.RMSMean,
		"rms_std":               f.RMSStd,
		"centroid":              f.Centroid,
		"rolloff":               f.Rolloff,
		"bandwidth":             f.Bandwidth,
		"attack_time":           f.AttackTime,
		"decay_time":            f.DecayTime,
		"sustained_level":       f.SustainedLevel,
		"dynamic_range":         f.DynamicRange,
		"onset_rate":            f.OnsetRate,
		"tempo":                 f.Tempo,
		"harmonic_ratio":        f.HarmonicRatio,
		"pitch_salience":        f.PitchSalience,
		"spectral_entropy":      f.SpectralEntropy,
		"spectral_irregularity": f.SpectralIrregularity,
		"roughness":             f.Roughness,
	}
	for name, v := range scalars {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s must be finite, got %v", name, v)
	}

	assert.InDelta(t, 1.0, f.Duration, 1e-9)
	assert.Greater(t, f.RMSMean, 0.0)
	// The centroid of a pure 440 Hz tone sits near the tone.
	assert.InDelta(t, 440, f.Centroid, 250)
	// A pure tone is harmonic-dominated.
	assert.Greater(t, f.HarmonicRatio, 0.5)
}

func TestFeatureBandsSumToOne(t *testing.T) {
	f := NewFeatureExtractor().Extract(sine(440, 1.0, 16000), 16000)
	var sum float64
	for _, v := range f.Bands {
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	// 440 Hz is the "low_mid" band (250-500 Hz).
	assert.Greater(t, f.Bands[2], 0.5)
}

func TestFeaturesEmptySignal(t *testing.T) {
	f := NewFeatureExtractor().Extract(nil, 16000)
	assert.Equal(t, 0.0, f.Duration)
	assert.Equal(t, 0.0, f.RMSMean)
}

func TestAnalyzerDeterminism(t *testing.T) {
	a := NewAudioAnalyzer()
	y := sine(440, 1.0, 16000)

	first := a.Analyze(y, 16000)
	second := a.Analyze(y, 16000)
	assert.Equal(t, first, second)
}

func TestAnalyzerComposesConsistentDuration(t *testing.T) {
	a := NewAudioAnalyzer()
	result := a.Analyze(sine(440, 1.5, 16000), 16000)
	assert.InDelta(t, 1.5, result.Duration, 1e-9)
	assert.InDelta(t, result.Features.Duration, result.Duration, 1e-12)
}

func TestIQRThreshold(t *testing.T) {
	// A flat distribution has zero IQR: threshold collapses to Q3.
	flat := []float64{1, 1, 1, 1}
	assert.InDelta(t, 1.0, iqrThreshold(flat), 1e-9)
	assert.Equal(t, 0.0, iqrThreshold(nil))
}
