package decode

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeSineWAV writes a 16-bit mono WAV containing a sine tone and returns
// its path.
func writeSineWAV(t *testing.T, dir, name string, freq float64, sampleRate, samples int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, samples)
	for i := range data {
		data[i] = int(0.8 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestFileDecodesWAV(t *testing.T) {
	dir := t.TempDir()
	const sampleRate = 44100
	path := writeSineWAV(t, dir, "tone.wav", 440, sampleRate, sampleRate)

	signal, rate, err := File(path, sampleRate)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if rate != sampleRate {
		t.Fatalf("expected rate %d, got %d", sampleRate, rate)
	}
	if len(signal) != sampleRate {
		t.Fatalf("expected %d samples, got %d", sampleRate, len(signal))
	}

	var peak float64
	for _, s := range signal {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 0.7 || peak > 0.9 {
		t.Fatalf("expected peak near 0.8, got %.4f", peak)
	}
}

func TestFileResamplesToTargetRate(t *testing.T) {
	dir := t.TempDir()
	// One second at 8000 Hz, decoded with a 44100 Hz target: the output
	// must still be one second long, including the tail held back by the
	// resampler's internal filter state.
	const sourceRate = 8000
	const targetRate = 44100
	path := writeSineWAV(t, dir, "low-rate.wav", 220, sourceRate, sourceRate)

	signal, rate, err := File(path, targetRate)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if rate != targetRate {
		t.Fatalf("expected rate %d, got %d", targetRate, rate)
	}

	tolerance := targetRate / 100
	if len(signal) < targetRate-tolerance || len(signal) > targetRate+tolerance {
		t.Fatalf("expected about %d samples after resampling, got %d", targetRate, len(signal))
	}
}

func TestPCMScaleBounds(t *testing.T) {
	if got := pcmScale(16); got != 32768 {
		t.Fatalf("expected 16-bit scale 32768, got %v", got)
	}
	if got := pcmScale(24); got != 8388608 {
		t.Fatalf("expected 24-bit scale 8388608, got %v", got)
	}
	// Depths above 32 must clamp rather than overflow into a negative
	// scale that would invert the signal.
	if got := pcmScale(64); got != pcmScale(32) || got <= 0 {
		t.Fatalf("expected depth 64 to clamp to the 32-bit scale, got %v", got)
	}
	if got := pcmScale(0); got != 32768 {
		t.Fatalf("expected missing depth to fall back to 16-bit, got %v", got)
	}
}

func TestFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := File(path, 44100); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestFileInvalidWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := File(path, 44100); err == nil {
		t.Fatalf("expected error for invalid WAV payload")
	}
}

func TestFileInvalidMP3(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mp3")
	if err := os.WriteFile(path, []byte("not really an mp3"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := File(path, 44100); err == nil {
		t.Fatalf("expected error for invalid MP3 payload")
	}
}

func TestProbeFallbackMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeSineWAV(t, dir, "Morning Drums.wav", 220, 8000, 8000)

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if info.Filename != "Morning Drums.wav" {
		t.Fatalf("unexpected filename %q", info.Filename)
	}
	if info.Title != "Morning Drums" {
		t.Fatalf("expected title fallback to file stem, got %q", info.Title)
	}
	if info.DurationSeconds != nil {
		t.Fatalf("expected duration to be nil for non-mp3")
	}
	if info.FilesizeBytes == 0 {
		t.Fatalf("expected non-zero file size")
	}
}

func TestProbeInvalidMP3(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mp3")
	if err := os.WriteFile(path, []byte("not really an mp3"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe unexpected error: %v", err)
	}
	if info.DurationSeconds != nil {
		t.Fatalf("expected duration to be nil on frame scan failure")
	}
	if info.BitrateKbps != nil {
		t.Fatalf("expected bitrate to remain nil on frame scan failure")
	}
}

func TestProbeMissingFile(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
