package models

import "math"

// FeatureRecord holds the extracted summary features for a single audio file,
// including the raw normalized signal it was computed from.
type FeatureRecord struct {
	Signal     []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration_seconds"`
	Centroid   float64   `json:"spectral_centroid_hz"`
	Bandwidth  float64   `json:"spectral_bandwidth_hz"`
	Amplitude  float64   `json:"mean_amplitude"`

	// Extended frame statistics computed on the same STFT pass.
	RMSEnergy     float64 `json:"rms_energy"`
	ZeroCrossRate float64 `json:"zero_cross_rate"`
	Rolloff       float64 `json:"spectral_rolloff_hz"`
	Flux          float64 `json:"spectral_flux"`
}

// RecordSummary is the rounded, signal-free form written by the JSON export.
type RecordSummary struct {
	Duration  float64 `json:"duration"`
	Centroid  float64 `json:"centroid"`
	Bandwidth float64 `json:"bandwidth"`
	Amplitude float64 `json:"amplitude"`
}

// Summary returns the export form of the record. Duration, centroid and
// bandwidth are rounded to two decimals, amplitude to four.
func (r FeatureRecord) Summary() RecordSummary {
	return RecordSummary{
		Duration:  Round(r.Duration, 2),
		Centroid:  Round(r.Centroid, 2),
		Bandwidth: Round(r.Bandwidth, 2),
		Amplitude: Round(r.Amplitude, 4),
	}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// TrackInfo is the cheap metadata snapshot produced by the probe path. It is
// populated without decoding the full signal.
type TrackInfo struct {
	Filename        string   `json:"filename"`
	Title           string   `json:"title"`
	Artist          *string  `json:"artist,omitempty"`
	Album           *string  `json:"album,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	BitrateKbps     *int     `json:"bitrate_kbps,omitempty"`
	FilesizeBytes   int64    `json:"filesize_bytes"`
}
