// Package dsp computes summary spectral features from PCM audio.
//
// The front end is a centered STFT with Hann windows (2048-sample frames,
// 512-sample hop by default). Per-frame statistics are averaged over all
// frames to yield one scalar per feature.
package dsp

import "math"

// Stats holds the per-signal feature averages.
type Stats struct {
	Centroid  float64 // Hz, magnitude-weighted mean frequency
	Bandwidth float64 // Hz, spread around the centroid
	Rolloff   float64 // Hz, 85% cumulative energy point
	Flux      float64 // mean L2 distance between normalized frames
	RMSEnergy float64 // mean frame RMS
}

const (
	energyFloor    = 1e-12
	rolloffPercent = 0.85
)

// Analyze computes spectral statistics for a mono signal. Silent or empty
// signals produce zero-valued stats rather than an error.
func Analyze(signal []float64, sampleRate int, cfg Config) Stats {
	frames := Spectrogram(signal, cfg)
	if len(frames) == 0 {
		return Stats{}
	}
	freqs := BinFrequencies(cfg, sampleRate)

	var stats Stats
	var active int
	prev := make([]float64, len(freqs))
	curr := make([]float64, len(freqs))
	var fluxSum float64
	var fluxCount int

	for t, mag := range frames {
		var total float64
		for _, m := range mag {
			total += m
		}

		if total > energyFloor {
			centroid := 0.0
			for i, m := range mag {
				centroid += freqs[i] * m / total
			}

			var spread float64
			for i, m := range mag {
				d := freqs[i] - centroid
				spread += m / total * d * d
			}

			var cumulative float64
			rolloff := freqs[len(freqs)-1]
			threshold := rolloffPercent * total
			for i, m := range mag {
				cumulative += m
				if cumulative >= threshold {
					rolloff = freqs[i]
					break
				}
			}

			stats.Centroid += centroid
			stats.Bandwidth += math.Sqrt(spread)
			stats.Rolloff += rolloff
			active++
		}

		// Spectral flux over column-normalized magnitudes.
		for i, m := range mag {
			if total > energyFloor {
				curr[i] = m / total
			} else {
				curr[i] = 0
			}
		}
		if t > 0 {
			var d2 float64
			for i := range curr {
				d := curr[i] - prev[i]
				d2 += d * d
			}
			fluxSum += math.Sqrt(d2)
			fluxCount++
		}
		prev, curr = curr, prev
	}

	if active > 0 {
		stats.Centroid /= float64(active)
		stats.Bandwidth /= float64(active)
		stats.Rolloff /= float64(active)
	}
	if fluxCount > 0 {
		stats.Flux = fluxSum / float64(fluxCount)
	}
	stats.RMSEnergy = frameRMS(signal, cfg)

	return stats
}

// Normalize scales the signal in place to unit peak amplitude. A silent
// signal is returned unchanged.
func Normalize(signal []float64) {
	var peak float64
	for _, s := range signal {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i := range signal {
		signal[i] /= peak
	}
}

// MeanAbs returns the mean absolute amplitude of the signal.
func MeanAbs(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signal {
		sum += math.Abs(s)
	}
	return sum / float64(len(signal))
}

// ZeroCrossRate returns the fraction of adjacent sample pairs whose signs differ.
func ZeroCrossRate(signal []float64) float64 {
	if len(signal) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(signal); i++ {
		if (signal[i-1] >= 0) != (signal[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(signal)-1)
}

// frameRMS averages the root-mean-square energy over unwindowed frames.
func frameRMS(signal []float64, cfg Config) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sum float64
	var frames int
	for start := 0; start < len(signal); start += cfg.HopSize {
		end := start + cfg.FrameSize
		if end > len(signal) {
			end = len(signal)
		}
		var energy float64
		for _, s := range signal[start:end] {
			energy += s * s
		}
		sum += math.Sqrt(energy / float64(end-start))
		frames++
		if end == len(signal) {
			break
		}
	}
	return sum / float64(frames)
}
