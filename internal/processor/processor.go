// Package processor batch-extracts audio features into an in-memory dataset.
//
// Files are processed on a fixed-size worker pool; every per-file failure is
// logged and dropped so one bad file never aborts a batch. Successful records
// are cached on disk when caching is enabled.
package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"rhythm-features/internal/cache"
	"rhythm-features/internal/config"
	"rhythm-features/internal/decode"
	"rhythm-features/internal/dsp"
	"rhythm-features/internal/models"
)

// Processor owns a dataset of feature records keyed by filename.
type Processor struct {
	sampleRate int
	workers    int
	analysis   dsp.Config
	store      *cache.Cache // nil when caching is disabled
	logger     *log.Logger

	mu   sync.RWMutex
	data map[string]models.FeatureRecord
}

// New creates a Processor from the given settings. The cache directory is
// created when caching is enabled.
func New(settings config.Settings, logger *log.Logger) (*Processor, error) {
	if logger == nil {
		logger = log.Default()
	}

	p := &Processor{
		sampleRate: settings.SampleRate,
		workers:    settings.Workers,
		analysis:   dsp.DefaultConfig(),
		logger:     logger,
		data:       make(map[string]models.FeatureRecord),
	}
	if p.workers < 1 {
		p.workers = 1
	}

	if settings.UseCache {
		dir, err := config.ResolveCacheDir(settings.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}
		store, err := cache.New(dir)
		if err != nil {
			return nil, err
		}
		p.store = store
	}

	return p, nil
}

// Close releases cache resources. The in-memory dataset stays valid.
func (p *Processor) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

// ProcessFile extracts features for a single file, consulting the cache
// first. It returns the source basename and the record, or nil when
// processing failed. Failures are logged, never propagated.
func (p *Processor) ProcessFile(path string) (string, *models.FeatureRecord) {
	filename := filepath.Base(path)

	if p.store != nil {
		record, err := p.store.Load(path)
		switch {
		case err == nil:
			return filename, &record
		case os.IsNotExist(err):
			// first encounter, fall through to processing
		default:
			p.logger.Warn("cache entry corrupt, reprocessing", "file", filename, "error", err)
		}
	}

	signal, rate, err := decode.File(path, p.sampleRate)
	if err != nil {
		p.logger.Error("failed to process file", "file", path, "error", err)
		return filename, nil
	}

	dsp.Normalize(signal)
	stats := dsp.Analyze(signal, rate, p.analysis)

	record := models.FeatureRecord{
		Signal:        signal,
		SampleRate:    rate,
		Duration:      float64(len(signal)) / float64(rate),
		Centroid:      stats.Centroid,
		Bandwidth:     stats.Bandwidth,
		Amplitude:     dsp.MeanAbs(signal),
		RMSEnergy:     stats.RMSEnergy,
		ZeroCrossRate: dsp.ZeroCrossRate(signal),
		Rolloff:       stats.Rolloff,
		Flux:          stats.Flux,
	}

	if p.store != nil {
		if err := p.store.Store(path, record); err != nil {
			p.logger.Warn("could not write cache entry", "file", filename, "error", err)
		}
	}

	return filename, &record
}

type fileResult struct {
	filename string
	record   *models.FeatureRecord
}

// ProcessFiles runs ProcessFile for every path on a fixed-size worker pool
// and folds the successes into the dataset, overwriting prior entries with
// the same filename. It returns a snapshot of the full dataset once every
// file has completed.
func (p *Processor) ProcessFiles(paths []string) map[string]models.FeatureRecord {
	p.logger.Info("processing audio files", "count", len(paths), "workers", p.workers)

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				filename, record := p.ProcessFile(path)
				results <- fileResult{filename: filename, record: record}
			}
		}()
	}

	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Accumulation happens here, on the calling goroutine, after each
	// worker result arrives; the batch returns only when all are in.
	for result := range results {
		if result.record == nil {
			p.logger.Error("dropped from dataset", "file", result.filename)
			continue
		}

		p.mu.Lock()
		p.data[result.filename] = *result.record
		p.mu.Unlock()

		dur := result.record.Duration
		p.logger.Info("processed",
			"file", result.filename,
			"duration", fmt.Sprintf("%dm %ds (%.2f s)", int(dur)/60, int(dur)%60, dur),
			"amplitude", fmt.Sprintf("%.4f", result.record.Amplitude),
			"centroid", fmt.Sprintf("%.2f Hz", result.record.Centroid),
			"bandwidth", fmt.Sprintf("%.2f Hz", result.record.Bandwidth),
		)
	}

	return p.Dataset()
}

// Dataset returns a snapshot copy of the accumulated records.
func (p *Processor) Dataset() map[string]models.FeatureRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]models.FeatureRecord, len(p.data))
	for filename, record := range p.data {
		snapshot[filename] = record
	}
	return snapshot
}

// Lookup returns the record stored for the given filename.
func (p *Processor) Lookup(filename string) (models.FeatureRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	record, ok := p.data[filename]
	return record, ok
}

// Summaries returns the rounded, signal-free export view of the dataset.
func (p *Processor) Summaries() map[string]models.RecordSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summaries := make(map[string]models.RecordSummary, len(p.data))
	for filename, record := range p.data {
		summaries[filename] = record.Summary()
	}
	return summaries
}

// Summarize logs one line per stored record.
func (p *Processor) Summarize() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	p.logger.Info("stored records", "count", len(p.data))
	for filename, record := range p.data {
		p.logger.Info("record",
			"file", filename,
			"samples", len(record.Signal),
			"rate", fmt.Sprintf("%d Hz", record.SampleRate),
		)
	}
}

// ExportJSON writes the rounded summary mapping for every record to path.
// An empty dataset produces a valid JSON file containing an empty mapping.
// The dataset is unaffected by write failures.
func (p *Processor) ExportJSON(path string) error {
	summaries := p.Summaries()

	data, err := json.MarshalIndent(summaries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary to %s: %w", path, err)
	}

	p.logger.Info("summary exported", "path", path, "records", len(summaries))
	return nil
}
