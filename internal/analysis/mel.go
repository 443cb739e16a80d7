package analysis

import "math"

// melFilterbank builds nMels triangular filters over nBins = frameN/2+1
// power-spectrum bins, HTK-style.
func melFilterbank(frameN, nMels, sr int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

	nBins := frameN/2 + 1
	fMax := float64(sr) / 2

	fPts := make([]float64, nMels+2)
	mMin, mMax := hzToMel(0), hzToMel(fMax)
	for i := range fPts {
		fPts[i] = melToHz(mMin + float64(i)*(mMax-mMin)/float64(nMels+1))
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, nBins)
		lo, center, hi := fPts[m], fPts[m+1], fPts[m+2]
		for k := 0; k < nBins; k++ {
			hz := binHz(k, frameN, sr)
			var w float64
			switch {
			case hz >= lo && hz <= center && center > lo:
				w = (hz - lo) / (center - lo)
			case hz > center && hz <= hi && hi > center:
				w = (hi - hz) / (hi - center)
			}
			if w > 0 {
				filters[m][k] = w
			}
		}
	}
	return filters
}

// dctII applies an orthonormal type-II DCT, keeping the first nOut
// coefficients — the standard mel-log-energy -> MFCC step.
func dctII(x []float64, nOut int) []float64 {
	n := len(x)
	out := make([]float64, nOut)
	for k := 0; k < nOut; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i] * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		out[k] = sum * scale
	}
	return out
}

// chromaFilterbank maps FFT bins to 12 pitch classes (equal-tempered,
// A440 reference), summing energy from all octaves into one class per bin.
func chromaFilterbank(frameN, sr int) [][]float64 {
	nBins := frameN/2 + 1
	filters := make([][]float64, 12)
	for c := range filters {
		filters[c] = make([]float64, nBins)
	}
	for k := 1; k < nBins; k++ {
		hz := binHz(k, frameN, sr)
		if hz < 20 {
			continue
		}
		midi := 69 + 12*math.Log2(hz/440.0)
		pitchClass := int(math.Mod(math.Round(midi), 12))
		if pitchClass < 0 {
			pitchClass += 12
		}
		filters[pitchClass][k] = 1
	}
	return filters
}
