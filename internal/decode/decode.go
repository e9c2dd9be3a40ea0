// Package decode loads audio files into mono float64 PCM at a target sample
// rate, and provides a cheap metadata probe that avoids full decoding.
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	resampling "github.com/tphakala/go-audio-resampling"
)

// File decodes the audio file at path into a mono signal at targetRate Hz.
// Multichannel audio is averaged down to mono, and the signal is resampled
// when the source rate differs from the target.
func File(path string, targetRate int) ([]float64, int, error) {
	var signal []float64
	var sourceRate int
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		signal, sourceRate, err = decodeWAV(path)
	case ".mp3":
		signal, sourceRate, err = decodeMP3(path)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, 0, err
	}
	if len(signal) == 0 {
		return nil, 0, fmt.Errorf("no audio samples in %s", filepath.Base(path))
	}

	if sourceRate != targetRate {
		signal, err = resample(signal, sourceRate, targetRate)
		if err != nil {
			return nil, 0, err
		}
	}

	return signal, targetRate, nil
}

func decodeWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file: %s", filepath.Base(path))
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("empty WAV payload: %s", filepath.Base(path))
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	scale := pcmScale(bitDepth)

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	signal := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / scale
		}
		signal[i] = sum / float64(channels)
	}

	return signal, buf.Format.SampleRate, nil
}

func decodeMP3(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("read mp3 stream: %w", err)
	}

	// The decoder always emits 16-bit little-endian stereo.
	frames := len(pcm) / 4
	signal := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := int16(pcm[i*4]) | int16(pcm[i*4+1])<<8
		right := int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8
		signal[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
	}

	return signal, decoder.SampleRate(), nil
}

func resample(signal []float64, sourceRate, targetRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(sourceRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	out, err := rs.Process(signal)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", sourceRate, targetRate, err)
	}

	// The resampler is a streaming filter: the last samples stay in its
	// internal history until it is flushed. Without the flush the tail of
	// every resampled file would be lost.
	tail, err := rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush resampler: %w", err)
	}
	return append(out, tail...), nil
}

// pcmScale returns the divisor that maps integer PCM of the given bit depth
// onto [-1, 1]. Depths outside what the decoder can produce fall back to
// sane values: 32-bit scaling would overflow above 32, so higher claims are
// clamped, and a missing depth is treated as 16-bit.
func pcmScale(bitDepth int) float64 {
	switch {
	case bitDepth <= 0:
		bitDepth = 16
	case bitDepth > 32:
		bitDepth = 32
	}
	return float64(uint64(1) << (bitDepth - 1))
}
