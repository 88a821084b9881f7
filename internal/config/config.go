package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"findoc/internal/logger"
)

// Enrichment providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// OCR providers.
const (
	OCRVision     = "vision"
	OCRDocumentAI = "documentai"
)

type Config struct {
	// Enrichment Configuration
	EnrichmentProvider        string
	GeminiAPIKey              string
	GeminiModel               string
	GeminiBaseURL             string
	OpenAIAPIKey              string
	OpenAIModel               string
	EnrichmentTimeout         time.Duration
	EnrichmentBreakerCooldown time.Duration

	// OCR Configuration
	OCRProvider           string
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Pipeline Configuration
	TaxonomyFile   string
	MaxUploadBytes int64
	BatchWorkers   int

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// HTTP Configuration
	Port string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		EnrichmentProvider:        strings.ToLower(getEnv("ENRICHMENT_PROVIDER", "")),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:             getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:              getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:               getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EnrichmentTimeout:         getDuration("ENRICHMENT_TIMEOUT", 60*time.Second),
		EnrichmentBreakerCooldown: getDuration("ENRICHMENT_BREAKER_COOLDOWN", 30*time.Second),
		OCRProvider:               strings.ToLower(getEnv("OCR_PROVIDER", OCRVision)),
		GoogleCloudProject:        getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:       getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:     getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		TaxonomyFile:              getEnv("TAXONOMY_FILE", ""),
		MaxUploadBytes:            int64(getInt("MAX_UPLOAD_BYTES", 20*1024*1024)),
		BatchWorkers:              getInt("BATCH_WORKERS", 4),
		GoogleSheetURL:            getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:      getEnv("GOOGLE_SHEET_WORKSHEET", "Analysis"),
		Port:                      getEnv("PORT", "8000"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogFormat:                 getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:             getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                 getEnv("LOG_OUTPUT", "stderr"),
	}

	if config.EnrichmentProvider == "" {
		config.EnrichmentProvider = ProviderGemini
		if config.GeminiAPIKey == "" && config.OpenAIAPIKey != "" {
			config.EnrichmentProvider = ProviderOpenAI
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate only rejects settings that cannot work at all. Missing API keys
// are tolerated: enrichment then degrades to error summaries per document.
func (c *Config) validate() error {
	switch c.EnrichmentProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("ENRICHMENT_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.EnrichmentProvider)
	}
	switch c.OCRProvider {
	case OCRVision:
	case OCRDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for OCR_PROVIDER=%s", OCRDocumentAI)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for OCR_PROVIDER=%s", OCRDocumentAI)
		}
	default:
		return fmt.Errorf("OCR_PROVIDER must be %q or %q, got %q", OCRVision, OCRDocumentAI, c.OCRProvider)
	}
	if c.EnrichmentTimeout <= 0 {
		return fmt.Errorf("ENRICHMENT_TIMEOUT must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
