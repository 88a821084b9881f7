// Package extraction turns uploaded bytes into document text or a table.
//
// Routing is by filename suffix (case-insensitive):
//   - .pdf: embedded text layer, falling back to OCR for scanned PDFs
//   - .png, .jpg, .jpeg: OCR
//   - .csv, .xlsx, .xls: tabular parse, first row is the header
//
// Extract never returns an error and never panics; every problem becomes a
// *FailedResult carrying a human-readable reason.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"findoc/internal/logger"
	"findoc/internal/ocr"
)

// MinTextLength is the minimum number of characters of trimmed text that
// counts as readable.
const MinTextLength = 30

// DefaultMaxBytes bounds the size of a single upload.
const DefaultMaxBytes = 20 * 1024 * 1024

// Failure reasons.
const (
	ReasonUnsupported = "unsupported file type"
	ReasonNoText      = "extraction produced no readable text"
	ReasonTooLarge    = "file exceeds maximum upload size"
)

var errNoRecognizer = errors.New("no OCR backend configured")

type kind int

const (
	kindUnsupported kind = iota
	kindPDF
	kindImage
	kindCSV
	kindSpreadsheet
)

func kindOf(filename string) kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return kindPDF
	case ".png", ".jpg", ".jpeg":
		return kindImage
	case ".csv":
		return kindCSV
	case ".xlsx", ".xls":
		return kindSpreadsheet
	default:
		return kindUnsupported
	}
}

// Supported reports whether filename has a suffix the adapter can route.
func Supported(filename string) bool {
	return kindOf(filename) != kindUnsupported
}

// IsTabular reports whether filename is routed to the table parsers.
func IsTabular(filename string) bool {
	k := kindOf(filename)
	return k == kindCSV || k == kindSpreadsheet
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxBytes = n
		}
	}
}

// Adapter routes uploads to the matching extraction backend.
type Adapter struct {
	recognizer ocr.Recognizer
	maxBytes   int64
}

// NewAdapter returns an adapter that sends images and scanned PDFs to recognizer.
func NewAdapter(recognizer ocr.Recognizer, opts ...Option) *Adapter {
	a := &Adapter{recognizer: recognizer, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extract converts data, declared as filename, into a Result.
func (a *Adapter) Extract(ctx context.Context, filename string, data []byte) (res Result) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Extraction panicked")
			res = Failed(fmt.Sprintf("extraction error: %v", r))
		}
	}()

	if int64(len(data)) > a.maxBytes {
		return Failed(ReasonTooLarge)
	}

	k := kindOf(filename)
	log.Debug().Int("bytes", len(data)).Int("kind", int(k)).Msg("Extracting document")

	switch k {
	case kindPDF:
		return a.extractPDF(ctx, data)
	case kindImage:
		text, err := a.recognize(ctx, data, ocr.MimeTypeFor(filename))
		if err != nil {
			return Failed(fmt.Sprintf("extraction error: %v", err))
		}
		return readableText(text)
	case kindCSV:
		return tableOrFailure(parseCSV(data))
	case kindSpreadsheet:
		return tableOrFailure(parseSpreadsheet(data))
	default:
		return Failed(ReasonUnsupported)
	}
}

func (a *Adapter) extractPDF(ctx context.Context, data []byte) Result {
	log := logger.FromContext(ctx)

	text, err := pdfText(data)
	if err == nil {
		if res, ok := readableText(text).(*TextResult); ok {
			return res
		}
	} else {
		log.Warn().Err(err).Msg("PDF text layer unreadable")
	}

	// No usable text layer; treat it as a scan.
	if a.recognizer == nil {
		if err != nil {
			return Failed(fmt.Sprintf("extraction error: %v", err))
		}
		return Failed(ReasonNoText)
	}

	log.Debug().Msg("Falling back to OCR for scanned PDF")
	ocrText, ocrErr := a.recognize(ctx, data, ocr.MimePDF)
	if ocrErr != nil {
		return Failed(fmt.Sprintf("extraction error: %v", ocrErr))
	}
	return readableText(ocrText)
}

func (a *Adapter) recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if a.recognizer == nil {
		return "", errNoRecognizer
	}
	result, err := a.recognizer.Recognize(ctx, data, mimeType)
	if err != nil {
		if errors.Is(err, ocr.ErrEmptyDocument) {
			return "", nil
		}
		return "", err
	}
	return result.Text, nil
}

func readableText(text string) Result {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinTextLength {
		return Failed(ReasonNoText)
	}
	return Text(text)
}

func tableOrFailure(t *TableResult, err error) Result {
	if err != nil {
		return Failed(fmt.Sprintf("extraction error: %v", err))
	}
	return t
}
