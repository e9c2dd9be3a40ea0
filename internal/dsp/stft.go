package dsp

import "math"

// Config controls the STFT front end used for spectral feature extraction.
type Config struct {
	FrameSize int // window length in samples, must be a power of two
	HopSize   int // hop length in samples
}

// DefaultConfig returns the standard analysis parameters: 2048-sample Hann
// frames with a 512-sample hop.
func DefaultConfig() Config {
	return Config{
		FrameSize: 2048,
		HopSize:   512,
	}
}

// Spectrogram computes magnitude spectrum frames for the signal. The signal
// is padded by half a frame on both ends (reflected) so frames are centered
// on their timestamps. The result is [T][FrameSize/2+1] magnitudes.
func Spectrogram(signal []float64, cfg Config) [][]float64 {
	if len(signal) == 0 {
		return nil
	}

	padded := reflectPad(signal, cfg.FrameSize/2)
	window := hannWindow(cfg.FrameSize)

	numFrames := (len(padded)-cfg.FrameSize)/cfg.HopSize + 1
	if numFrames <= 0 {
		return nil
	}
	halfN := cfg.FrameSize/2 + 1

	frames := make([][]float64, numFrames)
	re := make([]float64, cfg.FrameSize)
	im := make([]float64, cfg.FrameSize)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize
		for i := 0; i < cfg.FrameSize; i++ {
			re[i] = padded[start+i] * window[i]
			im[i] = 0
		}
		fft(re, im)

		mag := make([]float64, halfN)
		for i := 0; i < halfN; i++ {
			mag[i] = math.Sqrt(re[i]*re[i] + im[i]*im[i])
		}
		frames[t] = mag
	}

	return frames
}

// BinFrequencies returns the center frequency in Hz of each magnitude bin.
func BinFrequencies(cfg Config, sampleRate int) []float64 {
	halfN := cfg.FrameSize/2 + 1
	freqs := make([]float64, halfN)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64(cfg.FrameSize)
	}
	return freqs
}

func reflectPad(signal []float64, pad int) []float64 {
	n := len(signal)
	if pad > n-1 {
		pad = n - 1
	}
	if pad < 0 {
		pad = 0
	}

	out := make([]float64, 0, n+2*pad)
	for i := pad; i > 0; i-- {
		out = append(out, signal[i])
	}
	out = append(out, signal...)
	for i := n - 2; i >= n-1-pad && i >= 0; i-- {
		out = append(out, signal[i])
	}
	return out
}
