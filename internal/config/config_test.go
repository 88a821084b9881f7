package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ENRICHMENT_PROVIDER", "")
	t.Setenv("OCR_PROVIDER", "")
	t.Setenv("ENRICHMENT_TIMEOUT", "")
	t.Setenv("BATCH_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.EnrichmentProvider)
	assert.Equal(t, OCRVision, cfg.OCRProvider)
	assert.Equal(t, 60*time.Second, cfg.EnrichmentTimeout)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, "8000", cfg.Port)
}

func TestLoadPicksOpenAIWhenOnlyItsKeyIsSet(t *testing.T) {
	t.Setenv("ENRICHMENT_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.EnrichmentProvider)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown provider", map[string]string{"ENRICHMENT_PROVIDER": "llama"}, "ENRICHMENT_PROVIDER"},
		{"unknown ocr", map[string]string{"OCR_PROVIDER": "tesseract"}, "OCR_PROVIDER"},
		{"document ai without processor", map[string]string{
			"OCR_PROVIDER":             "documentai",
			"GOOGLE_CLOUD_PROJECT":     "proj",
			"DOCUMENT_AI_PROCESSOR_ID": "",
		}, "DOCUMENT_AI_PROCESSOR_ID"},
		{"zero workers", map[string]string{"BATCH_WORKERS": "0"}, "BATCH_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("ENRICHMENT_TIMEOUT", "15")
	assert.Equal(t, 15*time.Second, getDuration("ENRICHMENT_TIMEOUT", time.Minute))

	t.Setenv("ENRICHMENT_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, getDuration("ENRICHMENT_TIMEOUT", time.Minute))

	t.Setenv("ENRICHMENT_TIMEOUT", "soon")
	assert.Equal(t, time.Minute, getDuration("ENRICHMENT_TIMEOUT", time.Minute))
}
