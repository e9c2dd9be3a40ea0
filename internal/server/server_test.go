package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"rhythm-features/internal/models"
)

type stubProvider struct {
	records map[string]models.FeatureRecord
}

func (s *stubProvider) Summaries() map[string]models.RecordSummary {
	summaries := make(map[string]models.RecordSummary, len(s.records))
	for name, record := range s.records {
		summaries[name] = record.Summary()
	}
	return summaries
}

func (s *stubProvider) Lookup(filename string) (models.FeatureRecord, bool) {
	record, ok := s.records[filename]
	return record, ok
}

func newTestServer(records map[string]models.FeatureRecord) http.Handler {
	return New(&stubProvider{records: records}, log.New(io.Discard))
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health body %q", recorder.Body.String())
	}
}

func TestFeaturesEmptyDataset(t *testing.T) {
	handler := newTestServer(nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/features", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if strings.TrimSpace(recorder.Body.String()) != "{}" {
		t.Fatalf("expected empty mapping, got %q", recorder.Body.String())
	}
}

func TestFeaturesListsSummaries(t *testing.T) {
	records := map[string]models.FeatureRecord{
		"tone.wav": {
			Signal:     make([]float64, 44100),
			SampleRate: 44100,
			Duration:   1.004,
			Centroid:   812.345,
			Bandwidth:  455.678,
			Amplitude:  0.63662,
		},
	}
	handler := newTestServer(records)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/features", nil))

	var payload map[string]models.RecordSummary
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	summary, ok := payload["tone.wav"]
	if !ok {
		t.Fatalf("expected tone.wav in response")
	}
	if summary.Duration != 1.0 {
		t.Fatalf("expected rounded duration 1.00, got %v", summary.Duration)
	}
	if summary.Amplitude != 0.6366 {
		t.Fatalf("expected amplitude rounded to 4 decimals, got %v", summary.Amplitude)
	}
}

func TestSingleFeatureAndNotFound(t *testing.T) {
	records := map[string]models.FeatureRecord{
		"tone.wav": {
			Signal:     make([]float64, 1000),
			SampleRate: 22050,
			Duration:   0.045,
		},
	}
	handler := newTestServer(records)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/features/tone.wav", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var view struct {
		SampleRate int `json:"sample_rate"`
		Samples    int `json:"samples"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.SampleRate != 22050 || view.Samples != 1000 {
		t.Fatalf("unexpected view %+v", view)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/features/absent.wav", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown record, got %d", recorder.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(nil)

	for _, path := range []string{"/health", "/features", "/features/x.wav", "/summary.json"} {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, path, nil))
		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for POST %s, got %d", path, recorder.Code)
		}
	}
}

func TestSummaryEndpointMatchesExportShape(t *testing.T) {
	records := map[string]models.FeatureRecord{
		"a.wav": {Duration: 2.5, Centroid: 100, Bandwidth: 50, Amplitude: 0.25},
	}
	handler := newTestServer(records)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/summary.json", nil))

	var payload map[string]models.RecordSummary
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["a.wav"].Duration != 2.5 {
		t.Fatalf("unexpected summary payload %+v", payload)
	}
}
