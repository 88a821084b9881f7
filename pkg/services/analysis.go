package services

import (
	"context"

	"findoc/pkg/models"
)

// AnalysisService analyzes one uploaded financial document.
type AnalysisService interface {
	// Analyze returns the unified record for the file. Extraction and
	// enrichment failures are reported inside the record; the error is
	// reserved for failures of the service itself.
	Analyze(ctx context.Context, filename string, data []byte) (*models.AnalysisRecord, error)
}

// AnalysisFunc adapts a function to AnalysisService.
type AnalysisFunc func(ctx context.Context, filename string, data []byte) (*models.AnalysisRecord, error)

func (f AnalysisFunc) Analyze(ctx context.Context, filename string, data []byte) (*models.AnalysisRecord, error) {
	return f(ctx, filename, data)
}
