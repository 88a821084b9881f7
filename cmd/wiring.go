package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"findoc/internal/config"
	"findoc/internal/enrichment"
	"findoc/internal/extraction"
	"findoc/internal/metrics"
	"findoc/internal/ocr"
	"findoc/internal/pipeline"
	"findoc/internal/taxonomy"
)

// app bundles the long-lived dependencies every command builds from config.
type app struct {
	cfg       *config.Config
	taxonomy  *taxonomy.Taxonomy
	extractor *extraction.Adapter
	analyzer  *pipeline.Analyzer
	metrics   *metrics.ServiceMetrics
	closers   []io.Closer
}

func newApp(ctx context.Context, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	tx, err := loadTaxonomy(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		taxonomy: tx,
		metrics:  metrics.NewServiceMetrics("findoc"),
	}

	recognizer := a.newRecognizer(ctx, log)
	a.extractor = extraction.NewAdapter(recognizer, extraction.WithMaxBytes(cfg.MaxUploadBytes))

	enricher := enrichment.New(newCompleter(cfg, log), enrichment.WithTimeout(cfg.EnrichmentTimeout))
	a.analyzer = pipeline.New(tx, a.extractor, enricher, pipeline.WithObserver(a.metrics))

	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func loadTaxonomy(cfg *config.Config, log zerolog.Logger) (*taxonomy.Taxonomy, error) {
	if cfg.TaxonomyFile == "" {
		return taxonomy.Default(), nil
	}
	tx, err := taxonomy.LoadFile(cfg.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	log.Info().
		Str("file", cfg.TaxonomyFile).
		Int("categories", tx.Len()).
		Msg("Loaded keyword taxonomy")
	return tx, nil
}

// newRecognizer builds the configured OCR backend. A backend that cannot be
// created is replaced by ocr.Unavailable so text-layer PDFs and spreadsheets
// keep working.
func (a *app) newRecognizer(ctx context.Context, log zerolog.Logger) ocr.Recognizer {
	var (
		recognizer ocr.Recognizer
		closer     io.Closer
		err        error
	)

	switch a.cfg.OCRProvider {
	case config.OCRDocumentAI:
		var r *ocr.DocumentAIRecognizer
		r, err = ocr.NewDocumentAIRecognizer(ctx, ocr.DocumentAIConfig{
			ProjectID:   a.cfg.GoogleCloudProject,
			Location:    a.cfg.GoogleCloudLocation,
			ProcessorID: a.cfg.DocumentAIProcessorID,
		})
		recognizer, closer = r, r
	default:
		var r *ocr.VisionRecognizer
		r, err = ocr.NewVisionRecognizer(ctx)
		recognizer, closer = r, r
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", a.cfg.OCRProvider).
			Msg("OCR backend unavailable, images and scanned PDFs will fail extraction")
		return ocr.Unavailable{Err: err}
	}

	a.closers = append(a.closers, closer)
	log.Debug().Str("provider", a.cfg.OCRProvider).Msg("OCR backend ready")
	return recognizer
}

func newCompleter(cfg *config.Config, log zerolog.Logger) enrichment.Completer {
	var next enrichment.Completer
	switch cfg.EnrichmentProvider {
	case config.ProviderOpenAI:
		next = enrichment.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if cfg.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY is not set, enrichment will report errors")
		}
	default:
		next = enrichment.NewGeminiCompleter(cfg.GeminiAPIKey,
			enrichment.WithGeminiModel(cfg.GeminiModel),
			enrichment.WithGeminiBaseURL(cfg.GeminiBaseURL),
		)
		if cfg.GeminiAPIKey == "" {
			log.Warn().Msg("GEMINI_API_KEY is not set, enrichment will report errors")
		}
	}

	log.Debug().
		Str("provider", cfg.EnrichmentProvider).
		Dur("timeout", cfg.EnrichmentTimeout).
		Msg("Enrichment client configured")

	return enrichment.NewBreakerCompleter(next, enrichment.BreakerConfig{
		Name:     cfg.EnrichmentProvider,
		Cooldown: cfg.EnrichmentBreakerCooldown,
	})
}

// signalContext cancels on SIGINT or SIGTERM and after timeout when positive.
func signalContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}

	log.Debug().Dur("timeout", timeout).Msg("Command deadline set")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func readInputFile(path string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("file too large (%d bytes), maximum size is %d bytes", info.Size(), maxBytes)
	}
	return os.ReadFile(path)
}
