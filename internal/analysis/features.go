package analysis

import (
	"math"
	"sort"
)

// FeatureExtractor computes the fixed-shape Features record from a mono
// PCM buffer: spectral, temporal, harmonic, perceptual, and
// frequency-band descriptors.
type FeatureExtractor struct{}

// NewFeatureExtractor constructs a FeatureExtractor.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract computes Features for y sampled at sr Hz.
func (e *FeatureExtractor) Extract(y []float64, sr int) Features {
	var f Features
	f.Duration = nanToZero(float64(len(y)) / float64(sr))

	rms := frameRMS(y, frameSize, frameSize/2)
	f.RMSMean, f.RMSStd = meanStd(rms)

	frames := stft(y, frameSize, hopSize)
	if len(frames) == 0 {
		return f
	}
	nBins := frameSize/2 + 1

	e.fillSpectral(&f, frames, nBins, sr)
	e.fillTemporal(&f, y, sr, rms, frames)
	e.fillHarmonic(&f, frames, sr)
	e.fillPerceptual(&f, frames, nBins, sr)
	e.fillBands(&f, frames, nBins, sr)

	return f
}

func (e *FeatureExtractor) fillSpectral(f *Features, frames []stftFrame, nBins, sr int) {
	var centroids, rolloffs, bandwidths []float64
	mel := melFilterbank(frameSize, 26, sr)
	chroma := chromaFilterbank(frameSize, sr)
	contrastBands := [8]float64{20, 60, 250, 500, 2000, 4000, 6000, 10000}

	var mfccSum [13]float64
	var chromaSum [12]float64
	var contrastSum [7]float64
	var frameCount float64

	for _, fr := range frames {
		var totalMag, weightedHz float64
		for i := 0; i < nBins; i++ {
			hz := binHz(i, frameSize, sr)
			totalMag += fr.mag[i]
			weightedHz += fr.mag[i] * hz
		}
		centroid := 0.0
		if totalMag > 0 {
			centroid = weightedHz / totalMag
		}
		centroids = append(centroids, centroid)

		// Rolloff: frequency below which 0.85 of the cumulative spectral
		// magnitude lies.
		target := 0.85 * totalMag
		cum, rolloff := 0.0, 0.0
		for i := 0; i < nBins; i++ {
			cum += fr.mag[i]
			if cum >= target {
				rolloff = binHz(i, frameSize, sr)
				break
			}
		}
		rolloffs = append(rolloffs, rolloff)

		var varSum float64
		for i := 0; i < nBins; i++ {
			d := binHz(i, frameSize, sr) - centroid
			varSum += fr.mag[i] * d * d
		}
		bandwidth := 0.0
		if totalMag > 0 {
			bandwidth = math.Sqrt(varSum / totalMag)
		}
		bandwidths = append(bandwidths, bandwidth)

		// MFCC: log-mel energy -> DCT.
		melLog := make([]float64, len(mel))
		for m := range mel {
			var e float64
			for i := 0; i < nBins; i++ {
				e += fr.power[i] * mel[m][i]
			}
			if e < 1e-10 {
				e = 1e-10
			}
			melLog[m] = math.Log(e)
		}
		mfcc := dctII(melLog, 13)
		for i := 0; i < 13; i++ {
			mfccSum[i] += mfcc[i]
		}

		// Chroma.
		for c := range chroma {
			var e float64
			for i := 0; i < nBins; i++ {
				e += fr.power[i] * chroma[c][i]
			}
			chromaSum[c] += e
		}

		// Spectral contrast: per-subband peak-vs-valley log energy ratio.
		for b := 0; b < 7; b++ {
			lo, hi := contrastBands[b], contrastBands[b+1]
			var vals []float64
			for i := 0; i < nBins; i++ {
				hz := binHz(i, frameSize, sr)
				if hz >= lo && hz < hi {
					vals = append(vals, fr.power[i])
				}
			}
			contrastSum[b] += subbandContrast(vals)
		}

		frameCount++
	}

	f.Centroid, _ = meanStd(centroids)
	rolloffMean, _ := meanStd(rolloffs)
	f.Rolloff = rolloffMean
	f.Bandwidth, _ = meanStd(bandwidths)

	if frameCount > 0 {
		for i := range f.MFCC {
			f.MFCC[i] = nanToZero(mfccSum[i] / frameCount)
		}
		// Normalize chroma means to sum to 1 so chroma describes pitch-class
		// *distribution*, not absolute energy.
		var chromaTotal float64
		for i := range chromaSum {
			chromaTotal += chromaSum[i]
		}
		for i := range f.Chroma {
			if chromaTotal > 0 {
				f.Chroma[i] = nanToZero(chromaSum[i] / chromaTotal)
			}
		}
		for i := range f.Contrast {
			f.Contrast[i] = nanToZero(contrastSum[i] / frameCount)
		}
	}
}

func subbandContrast(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	// Average top/bottom ~20% as peak/valley, guarding against 0-length slices.
	k := len(sorted) / 5
	if k < 1 {
		k = 1
	}
	var peak, valley float64
	for i := 0; i < k; i++ {
		valley += sorted[i]
		peak += sorted[len(sorted)-1-i]
	}
	peak /= float64(k)
	valley /= float64(k)
	if valley < 1e-10 {
		valley = 1e-10
	}
	if peak < 1e-10 {
		peak = 1e-10
	}
	return nanToZero(math.Log(peak) - math.Log(valley))
}

func (e *FeatureExtractor) fillTemporal(f *Features, y []float64, sr int, rms []float64, frames []stftFrame) {
	if len(rms) == 0 {
		return
	}
	// rms frames advance by frameSize/2 samples (see Extract).
	frameRate := float64(sr) / float64(frameSize/2)

	peak, peakIdx := 0.0, 0
	for i, v := range rms {
		if v > peak {
			peak = v
			peakIdx = i
		}
	}

	// attack_time: first non-silent frame -> 0.9*peak.
	silenceFloor := peak * 0.05
	firstNonSilent := 0
	for i, v := range rms {
		if v > silenceFloor {
			firstNonSilent = i
			break
		}
	}
	attackTarget := 0.9 * peak
	attackIdx := firstNonSilent
	for i := firstNonSilent; i <= peakIdx && i < len(rms); i++ {
		if rms[i] >= attackTarget {
			attackIdx = i
			break
		}
		attackIdx = i
	}
	f.AttackTime = nanToZero(float64(attackIdx-firstNonSilent) / frameRate)

	// decay_time: peak -> -20dB relative, or end of signal.
	decayTargetLinear := peak * math.Pow(10, -20.0/20.0)
	decayIdx := len(rms) - 1
	for i := peakIdx; i < len(rms); i++ {
		if rms[i] <= decayTargetLinear {
			decayIdx = i
			break
		}
	}
	f.DecayTime = nanToZero(float64(decayIdx-peakIdx) / frameRate)

	// sustained_level: median RMS in the middle 60%.
	n := len(rms)
	lo, hi := n*2/10, n*8/10
	if hi <= lo {
		lo, hi = 0, n
	}
	mid := append([]float64(nil), rms[lo:hi]...)
	sort.Float64s(mid)
	if len(mid) > 0 {
		f.SustainedLevel = nanToZero(mid[len(mid)/2])
	}

	// dynamic_range: peak - noise floor, in dB.
	sortedRMS := append([]float64(nil), rms...)
	sort.Float64s(sortedRMS)
	noiseFloor := sortedRMS[len(sortedRMS)/10] // 10th percentile as noise floor
	if noiseFloor < 1e-10 {
		noiseFloor = 1e-10
	}
	if peak < 1e-10 {
		peak = 1e-10
	}
	f.DynamicRange = nanToZero(20*math.Log10(peak) - 20*math.Log10(noiseFloor))

	f.OnsetRate = onsetRateFullRange(frames, frameSize, sr, f.Duration)
	f.Tempo = tempoFromOnsets(frames, frameSize, sr)
}

func (e *FeatureExtractor) fillHarmonic(f *Features, frames []stftFrame, sr int) {
	nBins := frameSize/2 + 1
	// Median-filter HPSS: harmonic = median across time (smooth in time,
	// sharp in frequency -> tonal); percussive = median across frequency
	// (smooth in frequency, sharp in time -> transient).
	harmKernel, percKernel := 17, 17
	mags := make([][]float64, len(frames))
	for i, fr := range frames {
		mags[i] = fr.mag
	}

	var harmEnergy, percEnergy float64
	for t := range mags {
		for k := 0; k < nBins; k++ {
			h := medianAcrossTime(mags, t, k, harmKernel)
			p := medianAcrossFreq(mags[t], k, percKernel)
			var hMask, pMask float64
			if h+p > 0 {
				hMask = h / (h + p)
				pMask = p / (h + p)
			}
			harmonicMag := hMask * mags[t][k]
			percussiveMag := pMask * mags[t][k]
			harmEnergy += harmonicMag * harmonicMag
			percEnergy += percussiveMag * percussiveMag
		}
	}
	if harmEnergy+percEnergy > 0 {
		f.HarmonicRatio = nanToZero(harmEnergy / (harmEnergy + percEnergy))
	}

	f.PitchSalience = pitchSalience(frames, sr)
}

func medianAcrossTime(mags [][]float64, t, k, kernel int) float64 {
	half := kernel / 2
	lo, hi := t-half, t+half
	if lo < 0 {
		lo = 0
	}
	if hi >= len(mags) {
		hi = len(mags) - 1
	}
	vals := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		vals = append(vals, mags[i][k])
	}
	return median(vals)
}

func medianAcrossFreq(frame []float64, k, kernel int) float64 {
	half := kernel / 2
	lo, hi := k-half, k+half
	if lo < 0 {
		lo = 0
	}
	if hi >= len(frame) {
		hi = len(frame) - 1
	}
	vals := append([]float64(nil), frame[lo:hi+1]...)
	return median(vals)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// pitchSalience is the peak normalized autocorrelation in the plausible
// fundamental-frequency lag range (80-1000 Hz), the maximum over frames, via
// their magnitude spectra converted back with an inverse-DFT-free direct
// lag sum (sufficient at this resolution; we operate on magnitude, not
// phase).
func pitchSalience(frames []stftFrame, sr int) float64 {
	if len(frames) == 0 {
		return 0
	}
	nBins := frameSize/2 + 1
	minHz, maxHz := 80.0, 1000.0

	var best float64
	for _, fr := range frames {
		var zeroLag float64
		for i := 0; i < nBins; i++ {
			zeroLag += fr.mag[i] * fr.mag[i]
		}
		if zeroLag <= 0 {
			continue
		}
		minLag := int(float64(sr) / maxHz)
		maxLag := int(float64(sr) / minHz)
		if maxLag >= nBins {
			maxLag = nBins - 1
		}
		if minLag < 1 {
			minLag = 1
		}
		for lag := minLag; lag <= maxLag; lag++ {
			var sum float64
			for i := 0; i+lag < nBins; i++ {
				sum += fr.mag[i] * fr.mag[i+lag]
			}
			corr := sum / zeroLag
			if corr > best {
				best = corr
			}
		}
	}
	return nanToZero(best)
}

func (e *FeatureExtractor) fillPerceptual(f *Features, frames []stftFrame, nBins, sr int) {
	var entropySum, irregularitySum, roughnessSum float64
	for _, fr := range frames {
		var total float64
		for i := 0; i < nBins; i++ {
			total += fr.power[i]
		}
		if total <= 0 {
			continue
		}
		var entropy float64
		for i := 0; i < nBins; i++ {
			p := fr.power[i] / total
			if p > 0 {
				entropy -= p * math.Log(p)
			}
		}
		entropySum += entropy

		var num, den float64
		for i := 1; i < nBins; i++ {
			d := fr.mag[i] - fr.mag[i-1]
			num += d * d
			den += fr.mag[i] * fr.mag[i]
		}
		if den > 0 {
			irregularitySum += num / den
		}

		roughnessSum += roughnessOfFrame(fr, sr)
	}
	n := float64(len(frames))
	if n > 0 {
		f.SpectralEntropy = nanToZero(entropySum / n)
		f.SpectralIrregularity = nanToZero(irregularitySum / n)
		f.Roughness = nanToZero(roughnessSum / n)
	}
}

// roughnessOfFrame sums Plomp-Levelt pairwise dissonance over the frame's
// strongest spectral partials.
func roughnessOfFrame(fr stftFrame, sr int) float64 {
	type partial struct {
		hz, amp float64
	}
	var partials []partial
	for i := 2; i < len(fr.mag)-2; i++ {
		if fr.mag[i] > fr.mag[i-1] && fr.mag[i] > fr.mag[i+1] {
			partials = append(partials, partial{hz: binHz(i, frameSize, sr), amp: fr.mag[i]})
		}
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].amp > partials[j].amp })
	if len(partials) > 12 {
		partials = partials[:12]
	}

	var roughness float64
	for i := 0; i < len(partials); i++ {
		for j := i + 1; j < len(partials); j++ {
			roughness += plompLevelt(partials[i].hz, partials[j].hz, partials[i].amp, partials[j].amp)
		}
	}
	return roughness
}

// plompLevelt approximates the classic dissonance curve: peak dissonance
// near a quarter of the critical bandwidth, vanishing outside it.
func plompLevelt(f1, f2, a1, a2 float64) float64 {
	if f1 <= 0 || f2 <= 0 {
		return 0
	}
	fmin, fmax := math.Min(f1, f2), math.Max(f1, f2)
	s := 0.24 / (0.021*fmin + 19)
	x := s * (fmax - fmin)
	const b1, b2 = 3.5, 5.75
	dissonance := math.Exp(-b1*x) - math.Exp(-b2*x)
	if dissonance < 0 {
		dissonance = 0
	}
	return a1 * a2 * dissonance
}

func (e *FeatureExtractor) fillBands(f *Features, frames []stftFrame, nBins, sr int) {
	var sums [8]float64
	for _, fr := range frames {
		for b := 0; b < 8; b++ {
			lo := bandEdgesHz[b]
			hi := bandEdgesHz[b+1]
			if hi < 0 {
				hi = float64(sr) / 2
			}
			for i := 0; i < nBins; i++ {
				hz := binHz(i, frameSize, sr)
				if hz >= lo && hz < hi {
					sums[b] += fr.power[i]
				}
			}
		}
	}
	var total float64
	for _, v := range sums {
		total += v
	}
	if total > 0 {
		for i := range f.Bands {
			f.Bands[i] = nanToZero(sums[i] / total)
		}
	}
}
