// Package pcm decodes audio files into mono float64 PCM buffers, the
// common currency every analysis collaborator operates on.
package pcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Buffer is a decoded mono PCM slice and its sample rate.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Source abstracts decoded-audio access: given a file path and a
// normalized time range [startNorm, endNorm] subset of [0,1], it yields a
// mono PCM buffer and sample rate.
type Source struct {
	// AudioRoot prefixes relative recording paths.
	AudioRoot string
}

// NewSource constructs a Source rooted at audioRoot.
func NewSource(audioRoot string) *Source {
	return &Source{AudioRoot: audioRoot}
}

// Load decodes the full file at path (joined with AudioRoot if relative)
// and slices it to [startNorm, endNorm).
func (s *Source) Load(path string, startNorm, endNorm float64) (Buffer, error) {
	if endNorm <= startNorm {
		return Buffer{}, fmt.Errorf("invalid range: start=%.4f end=%.4f", startNorm, endNorm)
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(s.AudioRoot, path)
	}

	mono, sr, err := decode(full)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(mono) == 0 {
		return Buffer{}, fmt.Errorf("empty decoded signal: %s", path)
	}

	n := len(mono)
	startIdx := int(startNorm * float64(n))
	endIdx := int(endNorm * float64(n))
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > n {
		endIdx = n
	}
	if endIdx <= startIdx {
		return Buffer{}, fmt.Errorf("zero-length slice after normalization: %s [%.4f,%.4f]", path, startNorm, endNorm)
	}

	return Buffer{Samples: mono[startIdx:endIdx], SampleRate: sr}, nil
}

func decode(path string) ([]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".mp3":
		return decodeMP3(path)
	default:
		return nil, 0, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}

func decodeWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read wav pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("invalid wav file")
	}
	mono := foldToMono(buf)
	return mono, buf.Format.SampleRate, nil
}

// foldToMono averages interleaved channels into one, scaling integer
// samples to [-1, 1] by the source bit depth.
func foldToMono(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	maxVal := float64(int64(1) << uint(bitDepth-1))

	n := len(buf.Data) / channels
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / maxVal
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

func decodeMP3(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decoder: %w", err)
	}
	sr := decoder.SampleRate()

	raw, err := io.ReadAll(decoder)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, 0, fmt.Errorf("read mp3 pcm: %w", err)
	}

	// go-mp3 always decodes to signed 16-bit stereo, interleaved.
	numSamples := len(raw) / 4
	mono := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		l := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		r := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		mono[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return mono, sr, nil
}
