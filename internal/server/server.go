// Package server exposes the feature dataset over a localhost HTTP API.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"rhythm-features/internal/models"
)

// DatasetProvider abstracts the record source for the HTTP handlers.
type DatasetProvider interface {
	Summaries() map[string]models.RecordSummary
	Lookup(filename string) (models.FeatureRecord, bool)
}

type serverHandler struct {
	provider DatasetProvider
	logger   *log.Logger
}

// recordView is the per-file response payload: the rounded summary plus the
// signal dimensions, never the raw samples.
type recordView struct {
	models.RecordSummary
	SampleRate int `json:"sample_rate"`
	Samples    int `json:"samples"`
}

// New creates the HTTP handler that exposes the dataset API.
func New(provider DatasetProvider, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &serverHandler{
		provider: provider,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/features", h.handleFeatures)
	mux.HandleFunc("/features/", h.handleFeature)
	mux.HandleFunc("/summary.json", h.handleSummary)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *serverHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.provider.Summaries())
}

func (h *serverHandler) handleFeature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/features/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	record, ok := h.provider.Lookup(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, recordView{
		RecordSummary: record.Summary(),
		SampleRate:    record.SampleRate,
		Samples:       len(record.Signal),
	})
}

func (h *serverHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.provider.Summaries())
}

func (h *serverHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"elapsed", time.Since(start),
		)
	})
}
