// Package cache persists feature records on disk, one file per audio file,
// keyed by the source filename's stem. Entries are gob-encoded and
// zstd-compressed. The cache is best effort: corrupt or unreadable entries
// are surfaced as errors so callers can fall back to reprocessing.
//
// Keying by stem means two inputs that share a basename in different
// directories collide on the same entry. This mirrors the cache layout the
// tool has always used and is an accepted limitation.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"rhythm-features/internal/models"
)

const entryExtension = ".feat"

// Cache is a directory of serialized feature records.
type Cache struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New opens (and creates if necessary) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Cache{dir: dir, encoder: encoder, decoder: decoder}, nil
}

// EntryPath returns the cache file path derived from an audio file path.
// The key is the basename with its extension stripped.
func (c *Cache) EntryPath(audioPath string) string {
	base := filepath.Base(audioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.dir, stem+entryExtension)
}

// Load reads and decodes the cache entry for the given audio path. A missing
// entry is reported via os.IsNotExist on the returned error.
func (c *Cache) Load(audioPath string) (models.FeatureRecord, error) {
	data, err := os.ReadFile(c.EntryPath(audioPath))
	if err != nil {
		return models.FeatureRecord{}, err
	}

	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return models.FeatureRecord{}, fmt.Errorf("decompress cache entry: %w", err)
	}

	var record models.FeatureRecord
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&record); err != nil {
		return models.FeatureRecord{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return record, nil
}

// Store serializes the full record, raw samples included, to the entry path
// for the given audio file.
func (c *Cache) Store(audioPath string, record models.FeatureRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	compressed := c.encoder.EncodeAll(buf.Bytes(), nil)
	if err := os.WriteFile(c.EntryPath(audioPath), compressed, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Close releases the compressor resources.
func (c *Cache) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
