// Package watch monitors an audio directory and reprocesses it when files
// change, with a debounce so bursts of events trigger a single run.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"rhythm-features/internal/config"
	"rhythm-features/internal/models"
)

// Batcher is the subset of the processor the watcher drives.
type Batcher interface {
	ProcessFiles(paths []string) map[string]models.FeatureRecord
}

// Watcher re-runs batch processing whenever audio files under the root change.
type Watcher struct {
	root    string
	batcher Batcher
	watcher *fsnotify.Watcher
	logger  *log.Logger

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New creates a Watcher over root, runs an initial batch, and starts
// watching for changes.
func New(root string, batcher Batcher, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		root:         root,
		batcher:      batcher,
		watcher:      fsWatcher,
		logger:       logger,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	w.addWatchRecursive(root)
	w.refresh()

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher and cleans up resources.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.refreshMu.Lock()
		if w.refreshTimer != nil {
			w.refreshTimer.Stop()
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addWatchRecursive(event.Name)
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		if config.IsAllowed(event.Name) || event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.scheduleRefresh()
		}
	}
}

// refresh walks the root and hands every eligible file to the batcher.
func (w *Watcher) refresh() {
	paths := CollectAudioFiles(w.root, w.logger)
	w.batcher.ProcessFiles(paths)
}

func (w *Watcher) scheduleRefresh() {
	select {
	case <-w.done:
		return
	default:
	}

	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	if w.refreshTimer != nil {
		w.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.refreshDelay, func() {
		w.refresh()

		w.refreshMu.Lock()
		if w.refreshTimer == timer {
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()
	})

	w.refreshTimer = timer
}

func (w *Watcher) addWatchRecursive(path string) {
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk error", "path", p, "error", err)
			return nil
		}

		if d.IsDir() {
			if err := w.watcher.Add(p); err != nil {
				w.logger.Warn("watcher add failure", "path", p, "error", err)
			}
		}
		return nil
	})
}

// CollectAudioFiles walks root and returns the sorted list of audio file
// paths with supported extensions. Walk errors are logged and skipped.
func CollectAudioFiles(root string, logger *log.Logger) []string {
	if logger == nil {
		logger = log.Default()
	}

	var paths []string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !config.IsAllowed(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})

	sort.Strings(paths)
	return paths
}
