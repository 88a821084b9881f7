package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig identifies the Document AI OCR processor to call.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us" or "eu"
	ProcessorID string
	Timeout     time.Duration
}

// ProcessorName returns the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIRecognizer implements Recognizer using a Document AI OCR processor.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
}

// NewDocumentAIRecognizer creates a recognizer for the configured processor.
func NewDocumentAIRecognizer(ctx context.Context, config DocumentAIConfig) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrOCRFailed, "project and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	opts := credentialOptions()
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIRecognizer{client: client, config: config}, nil
}

// Recognize sends data to the OCR processor and returns the document text.
func (p *DocumentAIRecognizer) Recognize(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	const op = "DocumentAIRecognizer.Recognize"
	startTime := time.Now()

	if err := validateInput(op, data, mimeType); err != nil {
		return nil, err
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}

	result, err := documentResult(resp.GetDocument())
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	result.ProcessingDuration = time.Since(startTime)

	return result, nil
}

func documentResult(doc *documentaipb.Document) (*Result, error) {
	if doc == nil || strings.TrimSpace(doc.GetText()) == "" {
		return nil, ErrEmptyDocument
	}

	var (
		confidenceSum   float32
		confidenceCount int
		languages       = make(map[string]bool)
	)
	for _, page := range doc.GetPages() {
		if c := page.GetLayout().GetConfidence(); c > 0 {
			confidenceSum += c
			confidenceCount++
		}
		for _, lang := range page.GetDetectedLanguages() {
			if code := lang.GetLanguageCode(); code != "" {
				languages[code] = true
			}
		}
	}

	result := &Result{
		Text:          doc.GetText(),
		PageCount:     len(doc.GetPages()),
		LanguageCodes: sortedKeys(languages),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	return result, nil
}

// Close closes the underlying Document AI client.
func (p *DocumentAIRecognizer) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
