package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

const (
	frameSize = 2048
	hopSize   = 512
)

// stftFrame is a single analysis frame: the windowed power spectrum
// (frameSize/2+1 bins) together with the matching magnitude spectrum.
// Phase is not kept.
type stftFrame struct {
	power []float64
	mag   []float64
}

// hannWindow builds a Hann window of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// stft computes the short-time Fourier transform of y using a Hann window,
// returning one stftFrame per hop. Only whole frames are taken, so trailing
// samples that do not fill a frame are dropped; a signal shorter than one
// frame yields a single zero-padded frame.
func stft(y []float64, frameN, hopN int) []stftFrame {
	if len(y) == 0 {
		return nil
	}
	window := hannWindow(frameN)
	fft := fourier.NewFFT(frameN)

	numFrames := 0
	if len(y) >= frameN {
		numFrames = (len(y)-frameN)/hopN + 1
	} else {
		numFrames = 1
	}

	frames := make([]stftFrame, numFrames)
	buf := make([]float64, frameN)
	for f := 0; f < numFrames; f++ {
		start := f * hopN
		for i := 0; i < frameN; i++ {
			idx := start + i
			if idx < len(y) {
				buf[i] = y[idx] * window[i]
			} else {
				buf[i] = 0
			}
		}
		coeffs := fft.Coefficients(nil, buf)
		nBins := frameN/2 + 1
		power := make([]float64, nBins)
		mag := make([]float64, nBins)
		for i := 0; i < nBins; i++ {
			re, im := real(coeffs[i]), imag(coeffs[i])
			p := re*re + im*im
			power[i] = p
			mag[i] = math.Sqrt(p)
		}
		frames[f] = stftFrame{power: power, mag: mag}
	}
	return frames
}

// binHz returns the center frequency in Hz of FFT bin i for an FFT of size
// frameN sampled at sr.
func binHz(i, frameN, sr int) float64 {
	return float64(i) * float64(sr) / float64(frameN)
}

// frameRMS computes RMS over fixed-size frames advanced by hopN samples —
// FeatureExtractor uses it with a 50% hop for rms_mean/std and as the
// envelope for the attack/decay/sustain/dynamic-range descriptors.
func frameRMS(y []float64, frameN, hopN int) []float64 {
	if len(y) == 0 {
		return nil
	}
	n := (len(y)-frameN)/hopN + 1
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for f := 0; f < n; f++ {
		start := f * hopN
		sum := 0.0
		count := 0
		for i := 0; i < frameN && start+i < len(y); i++ {
			v := y[start+i]
			sum += v * v
			count++
		}
		if count > 0 {
			out[f] = math.Sqrt(sum / float64(count))
		}
	}
	return out
}

// iqrThreshold returns Q3 + 1.5*(Q3-Q1) of the given sample, the
// adaptive onset threshold.
func iqrThreshold(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	stat.SortWeighted(sorted, nil)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return q3 + 1.5*(q3-q1)
}

func nanToZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean = stat.Mean(xs, nil)
	std = stat.StdDev(xs, nil)
	return nanToZero(mean), nanToZero(std)
}
