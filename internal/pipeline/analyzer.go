// Package pipeline runs one uploaded document through extraction,
// classification, enrichment and measurement and assembles the result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"findoc/internal/classifier"
	"findoc/internal/extraction"
	"findoc/internal/logger"
	"findoc/internal/metrics"
	"findoc/internal/taxonomy"
	"findoc/pkg/models"
	"findoc/pkg/services"
)

// TabularReasoning is the reasoning of every spreadsheet analysis.
const TabularReasoning = "Detected tabular structure, processed with AI analytics model."

// MissingSummary replaces a summary the enrichment reply did not contain.
const MissingSummary = "No summary was returned by the AI enrichment service."

// Extractor turns raw upload bytes into an extraction result.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) extraction.Result
}

// Enricher asks the generative service about extracted content.
type Enricher interface {
	EnrichText(ctx context.Context, text string, label taxonomy.Category) models.Enrichment
	EnrichTable(ctx context.Context, table *extraction.TableResult) models.Enrichment
}

// Observer receives every completed record.
type Observer interface {
	ObserveRecord(rec *models.AnalysisRecord)
}

// Analyzer is the document analysis pipeline. It is safe for concurrent use.
type Analyzer struct {
	extractor  Extractor
	classifier *classifier.Classifier
	reasoner   *classifier.Reasoner
	enricher   Enricher
	probe      *metrics.Probe
	observer   Observer
	log        zerolog.Logger
}

var _ services.AnalysisService = (*Analyzer)(nil)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithObserver reports each record to o.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) {
		a.observer = o
	}
}

// WithProbe replaces the default probe.
func WithProbe(p *metrics.Probe) Option {
	return func(a *Analyzer) {
		a.probe = p
	}
}

// New assembles an Analyzer. The taxonomy drives both the classifier and
// the reasoner.
func New(tx *taxonomy.Taxonomy, extractor Extractor, enricher Enricher, opts ...Option) *Analyzer {
	a := &Analyzer{
		extractor:  extractor,
		classifier: classifier.New(tx),
		reasoner:   classifier.NewReasoner(tx),
		enricher:   enricher,
		probe:      metrics.NewProbe(metrics.NewProcSampler(metrics.DefaultWindow)),
		log:        logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the record for one uploaded file. Extraction and
// enrichment problems are reported inside the record; an error is returned
// only when the pipeline itself breaks.
func (a *Analyzer) Analyze(ctx context.Context, filename string, data []byte) (rec *models.AnalysisRecord, err error) {
	const op = "pipeline.Analyze"

	start := time.Now()
	log := logger.ForDocument(a.log, uuid.NewString(), filename)
	ctx = logger.IntoContext(ctx, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Analysis aborted")
			rec, err = nil, fmt.Errorf("%s: %v", op, r)
		}
	}()

	log.Info().Int("bytes", len(data)).Msg("Analyzing document")

	rec = &models.AnalysisRecord{Filename: filename}

	switch res := a.extractor.Extract(ctx, filename, data).(type) {
	case *extraction.TableResult:
		log.Debug().Int("columns", len(res.Columns)).Int("rows", len(res.Rows)).Msg("Extracted table")
		rec.PredictedLabel = models.TabularLabel
		rec.Confidence = models.NotApplicable()
		rec.Reasoning = TabularReasoning
		rec.Enrichment = a.enricher.EnrichTable(ctx, res)

	case *extraction.TextResult:
		result := a.classifier.Classify(res.Content)
		log.Debug().
			Int("chars", len(res.Content)).
			Str("label", string(result.Label)).
			Float64("confidence", result.Confidence).
			Strs("matched", result.Matched).
			Msg("Classified text")
		rec.PredictedLabel = string(result.Label)
		rec.Confidence = models.ConfidenceOf(result.Confidence)
		rec.Reasoning = a.reasoner.Explain(res.Content, result.Label)
		rec.Enrichment = a.enricher.EnrichText(ctx, res.Content, result.Label)

	case *extraction.FailedResult:
		log.Warn().Str("reason", res.Reason).Msg("Extraction failed")
		rec.PredictedLabel = string(taxonomy.Unknown)
		rec.Confidence = models.ConfidenceOf(0)
		rec.Reasoning = classifier.NoReasoning
		rec.Enrichment = a.enricher.EnrichText(ctx, "", taxonomy.Unknown)

	default:
		return nil, fmt.Errorf("%s: unexpected extraction result %T", op, res)
	}

	if rec.Enrichment == nil {
		rec.Enrichment = models.Enrichment{}
	}
	if _, ok := rec.Enrichment.Summary(); !ok {
		rec.Enrichment[models.KeySummary] = MissingSummary
	}

	snap := a.probe.Measure(ctx, start)
	rec.LatencySeconds = snap.LatencySeconds
	rec.CPUPercent = snap.CPUPercent

	if a.observer != nil {
		a.observer.ObserveRecord(rec)
	}

	log.Info().
		Str("label", rec.PredictedLabel).
		Stringer("confidence", rec.Confidence).
		Float64("latency_s", rec.LatencySeconds).
		Float64("cpu_percent", rec.CPUPercent).
		Msg("Analysis complete")
	return rec, nil
}
