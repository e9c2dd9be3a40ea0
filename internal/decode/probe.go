package decode

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"rhythm-features/internal/models"
)

// Probe constructs a metadata snapshot for the given audio file without
// decoding the full signal. Tag failures fall back to the file stem; MP3
// duration and bitrate come from a frame scan.
func Probe(path string) (models.TrackInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return models.TrackInfo{}, err
	}

	tags := readTags(path)
	title := tags.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	info := models.TrackInfo{
		Filename:      filepath.Base(path),
		Title:         title,
		Artist:        tags.artist,
		Album:         tags.album,
		FilesizeBytes: stat.Size(),
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if stats, err := scanMP3(path, stat.Size()); err == nil {
			duration := stats.duration
			info.DurationSeconds = &duration
			if stats.bitrateKbps > 0 {
				bitrate := stats.bitrateKbps
				info.BitrateKbps = &bitrate
			}
		}
	}

	return info, nil
}

type tagInfo struct {
	title  string
	artist *string
	album  *string
}

func readTags(path string) tagInfo {
	f, err := os.Open(path)
	if err != nil {
		return tagInfo{}
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return tagInfo{}
	}

	info := tagInfo{title: strings.TrimSpace(meta.Title())}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		info.artist = &artist
	}
	if album := strings.TrimSpace(meta.Album()); album != "" {
		info.album = &album
	}
	return info
}

type mp3Stats struct {
	duration    float64 // seconds
	bitrateKbps int     // averaged over the whole file
}

// scanMP3 sums frame durations without producing PCM, which is much cheaper
// than a full decode when only the length is needed. The average bitrate is
// derived from the file size and the scanned duration.
func scanMP3(path string, sizeBytes int64) (mp3Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return mp3Stats{}, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return mp3Stats{}, err
		}
		total += frame.Duration().Seconds()
	}

	if total <= 0 {
		return mp3Stats{}, errors.New("no decodable mp3 frames")
	}

	return mp3Stats{
		duration:    total,
		bitrateKbps: int(math.Round(float64(sizeBytes) * 8 / total / 1000)),
	}, nil
}
