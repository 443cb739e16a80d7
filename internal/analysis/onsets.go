package analysis

import "math"

// band edges for the three onset bands EnergyAnalyzer tracks.
var (
	bandLowMid  = [2]float64{150, 2000}
	bandMid     = [2]float64{500, 4000}
	bandHighMid = [2]float64{2000, 8000}
)

const minInterOnsetSeconds = 0.030

// EnergyAnalyzer performs multi-band onset detection via an IQR-adaptive
// threshold on per-band spectral flux.
type EnergyAnalyzer struct{}

// NewEnergyAnalyzer constructs an EnergyAnalyzer.
func NewEnergyAnalyzer() *EnergyAnalyzer {
	return &EnergyAnalyzer{}
}

// Analyze returns ascending onset-time lists (seconds from the start of y)
// for the low-mid, mid, and high-mid bands.
func (e *EnergyAnalyzer) Analyze(y []float64, sr int) OnsetResult {
	frames := stft(y, frameSize, hopSize)
	frameRate := float64(sr) / float64(hopSize)

	return OnsetResult{
		LowMid:  onsetsForBand(frames, frameSize, sr, frameRate, bandLowMid),
		Mid:     onsetsForBand(frames, frameSize, sr, frameRate, bandMid),
		HighMid: onsetsForBand(frames, frameSize, sr, frameRate, bandHighMid),
	}
}

// bandFlux computes positive-only spectral flux (novelty) for one band
// across all frames.
func bandFlux(frames []stftFrame, frameN, sr int, band [2]float64) []float64 {
	nBins := frameN/2 + 1
	flux := make([]float64, len(frames))
	var prev []float64
	for f, fr := range frames {
		cur := make([]float64, 0, nBins)
		for i := 0; i < nBins; i++ {
			hz := binHz(i, frameN, sr)
			if hz >= band[0] && hz < band[1] {
				cur = append(cur, fr.mag[i])
			}
		}
		if prev != nil {
			var sum float64
			for i := range cur {
				d := cur[i] - prev[i]
				if d > 0 {
					sum += d
				}
			}
			flux[f] = sum
		}
		prev = cur
	}
	return flux
}

// onsetsForBand finds peaks in bandFlux that exceed the IQR-adaptive
// threshold, enforcing a minimum inter-onset interval.
func onsetsForBand(frames []stftFrame, frameN, sr int, frameRate float64, band [2]float64) []float64 {
	if len(frames) < 3 {
		return nil
	}
	flux := bandFlux(frames, frameN, sr, band)
	threshold := iqrThreshold(flux)

	minGapFrames := int(math.Ceil(minInterOnsetSeconds*frameRate - 1e-9))
	if minGapFrames < 1 {
		minGapFrames = 1
	}

	var onsets []float64
	lastOnsetFrame := -minGapFrames - 1
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] <= threshold {
			continue
		}
		if flux[i] < flux[i-1] || flux[i] < flux[i+1] {
			continue
		}
		if i-lastOnsetFrame < minGapFrames {
			continue
		}
		lastOnsetFrame = i
		onsets = append(onsets, float64(i)/frameRate)
	}
	return onsets
}

// onsetRateFullRange is the onset_rate descriptor used by FeatureExtractor:
// events/second of the mid band detector applied over the whole signal.
func onsetRateFullRange(frames []stftFrame, frameN, sr int, duration float64) float64 {
	frameRate := float64(sr) / float64(hopSize)
	onsets := onsetsForBand(frames, frameN, sr, frameRate, bandMid)
	if duration <= 0 {
		return 0
	}
	return nanToZero(float64(len(onsets)) / duration)
}

// tempoFromOnsets estimates tempo (BPM) via autocorrelation of the onset
// strength envelope, matching the approach the wider corpus uses for beat
// tracking (bass-emphasis + autocorrelation peak picking).
func tempoFromOnsets(frames []stftFrame, frameN, sr int) float64 {
	if len(frames) < 8 {
		return 0
	}
	frameRate := float64(sr) / float64(hopSize)
	flux := bandFlux(frames, frameN, sr, [2]float64{20, 200})

	minBPM, maxBPM := 60.0, 200.0
	minLag := int(60.0 / maxBPM * frameRate)
	maxLag := int(60.0 / minBPM * frameRate)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}
	if maxLag <= minLag {
		return 0
	}

	var zeroLag float64
	for _, v := range flux {
		zeroLag += v * v
	}
	if zeroLag <= 0 {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(flux); i++ {
			sum += flux[i] * flux[i+lag]
		}
		corr := sum / zeroLag
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return nanToZero(60.0 * frameRate / float64(bestLag))
}
