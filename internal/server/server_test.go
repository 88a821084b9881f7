package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findoc/internal/metrics"
	"findoc/pkg/models"
	"findoc/pkg/services"
)

func uploadRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestStatusRoute(t *testing.T) {
	h := New(nil, nil, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": StatusMessage}, decodeBody(t, rec.Body))
}

func TestAnalyzeRoute(t *testing.T) {
	var gotName string
	var gotData []byte
	svc := services.AnalysisFunc(func(_ context.Context, filename string, data []byte) (*models.AnalysisRecord, error) {
		gotName, gotData = filename, data
		return &models.AnalysisRecord{
			Filename:       filename,
			PredictedLabel: models.TabularLabel,
			Confidence:     models.NotApplicable(),
			Reasoning:      "Detected tabular structure, processed with AI analytics model.",
			LatencySeconds: 0.125,
			CPUPercent:     3.5,
			Enrichment:     models.Enrichment{models.KeySummary: "Ledger.", models.KeyDatasetType: "ledger"},
		}, nil
	})
	m := metrics.NewServiceMetrics("test")
	h := New(svc, m, Options{}).Handler()

	for _, path := range []string{"/analyze/", "/analyze"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, path, "file", "ledger.csv", []byte("a,b\n1,2\n")))

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		body := decodeBody(t, rec.Body)
		assert.Equal(t, "ledger.csv", body["filename"])
		assert.Equal(t, "N/A", body["confidence"])
		assert.Equal(t, "Tabular Data", body["predicted_label"])
		assert.Equal(t, 0.125, body["latency_s"])
		assert.Equal(t, "ledger", body["dataset_type"])
	}
	assert.Equal(t, "ledger.csv", gotName)
	assert.Equal(t, []byte("a,b\n1,2\n"), gotData)
}

func TestAnalyzeRouteMissingFile(t *testing.T) {
	h := New(services.AnalysisFunc(func(context.Context, string, []byte) (*models.AnalysisRecord, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}), nil, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/analyze/", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec.Body)["error"], `"file" is required`)
}

func TestAnalyzeRouteTooLarge(t *testing.T) {
	h := New(services.AnalysisFunc(func(context.Context, string, []byte) (*models.AnalysisRecord, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}), nil, Options{MaxUploadBytes: 16}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/analyze/", "file", "big.pdf", bytes.Repeat([]byte("x"), 64)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeRouteInternalError(t *testing.T) {
	svc := services.AnalysisFunc(func(context.Context, string, []byte) (*models.AnalysisRecord, error) {
		return nil, errors.New("pipeline.Analyze: nil map")
	})
	m := metrics.NewServiceMetrics("test")
	h := New(svc, m, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/analyze/", "file", "x.pdf", []byte("%PDF")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Internal error: pipeline.Analyze: nil map"}, decodeBody(t, rec.Body))

	metricsRec := httptest.NewRecorder()
	h.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `findoc_pipeline_internal_errors_total{path="/analyze/",service="test"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `path="/analyze/"`)
}

func TestCORSPreflight(t *testing.T) {
	h := New(nil, nil, Options{}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/analyze/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
