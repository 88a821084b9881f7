package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"findoc/internal/extraction"
	"findoc/internal/logger"
	"findoc/internal/taxonomy"
	"findoc/pkg/models"
)

// DefaultTimeout bounds one call to the generative service.
const DefaultTimeout = 60 * time.Second

// UnavailableSummary is the summary used when there was no readable text to send.
const UnavailableSummary = "Due to an extraction error, the content of the document is unavailable. Therefore, no summary can be provided."

// textFields are the structured keys of a text-mode record other than the summary.
var textFields = []string{
	models.KeyInvoiceNumber,
	models.KeyTotalAmount,
	models.KeyInvoiceDate,
	models.KeyDueDate,
	models.KeyVendorName,
	models.KeyTaxRate,
	models.KeyTaxAmount,
	models.KeySubtotal,
}

// Enricher builds prompts, calls the Completer and parses the reply.
// Its methods never fail: every problem is folded into the returned record.
type Enricher struct {
	completer Completer
	timeout   time.Duration
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New returns an Enricher that sends prompts through completer.
func New(completer Completer, opts ...Option) *Enricher {
	e := &Enricher{completer: completer, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichText summarizes document text and extracts invoice-style entities.
// Text below the readability threshold is not sent; a fixed record saying
// the content is unavailable is returned instead.
func (e *Enricher) EnrichText(ctx context.Context, text string, label taxonomy.Category) models.Enrichment {
	log := logger.FromContext(ctx)

	if utf8.RuneCountInString(strings.TrimSpace(text)) < extraction.MinTextLength {
		log.Debug().Msg("Skipping enrichment for unreadable text")
		return textRecord(UnavailableSummary)
	}

	raw, err := e.complete(ctx, BuildTextPrompt(text, label))
	if err != nil {
		log.Warn().Err(err).Str("mode", "text").Msg("Enrichment call failed")
		return textRecord(errorSummary(err))
	}
	return ParseEmbeddedObject(raw)
}

// EnrichTable asks for dataset-level analytics over a preview of table.
func (e *Enricher) EnrichTable(ctx context.Context, table *extraction.TableResult) models.Enrichment {
	log := logger.FromContext(ctx)

	prompt, err := BuildTablePrompt(table)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to build table preview")
		return models.Enrichment{models.KeySummary: errorSummary(err)}
	}

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("mode", "table").Msg("Enrichment call failed")
		return models.Enrichment{models.KeySummary: errorSummary(err)}
	}
	return ParseEmbeddedObject(raw)
}

func (e *Enricher) complete(ctx context.Context, prompt string) (string, error) {
	if e.completer == nil {
		return "", ErrMissingAPIKey
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.completer.Complete(callCtx, prompt)
	logger.FromContext(ctx).Debug().
		Int("prompt_chars", utf8.RuneCountInString(prompt)).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Enrichment call finished")
	return raw, err
}

// textRecord is a text-mode record with every structured field explicitly null.
func textRecord(summary string) models.Enrichment {
	rec := models.Enrichment{
		models.KeySummary:        summary,
		models.KeyConfirmedLabel: "N/A",
	}
	for _, k := range textFields {
		rec[k] = nil
	}
	return rec
}

func errorSummary(err error) string {
	if IsCircuitOpen(err) {
		return fmt.Sprintf("AI enrichment error: service temporarily disabled after repeated failures (%v)", err)
	}
	return fmt.Sprintf("AI enrichment error: %v", err)
}
