// Package ocr recognizes text in scanned documents using Google Cloud services.
//
// Two backends implement Recognizer:
//   - VisionRecognizer: Cloud Vision document text detection. Images are sent
//     through BatchAnnotateImages, PDFs through BatchAnnotateFiles.
//   - DocumentAIRecognizer: a Document AI OCR processor, which accepts images
//     and PDFs through the same ProcessDocument call.
//
// Credentials are read from the environment:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Synchronous limits shared by both services:
//   - Maximum file size: 20MB
//   - Maximum pages for PDFs: 5 (Vision)
package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/option"
)

// Recognizer extracts text from an image or scanned PDF.
type Recognizer interface {
	// Recognize returns the text found in data. mimeType is one of
	// image/png, image/jpeg or application/pdf.
	Recognize(ctx context.Context, data []byte, mimeType string) (*Result, error)
}

// Result contains recognized text with metadata.
type Result struct {
	// Text is the recognized content in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages or images processed.
	PageCount int `json:"page_count"`

	// Confidence is the average page confidence (0.0 to 1.0), 0 when unknown.
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the detected languages.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessingDuration is how long recognition took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Supported MIME types.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimePDF  = "application/pdf"
)

// MimeTypeFor maps a filename to the MIME type sent to the OCR service.
// It returns "" for files no backend accepts.
func MimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return MimePNG
	case ".jpg", ".jpeg":
		return MimeJPEG
	case ".pdf":
		return MimePDF
	default:
		return ""
	}
}

// Unavailable is a Recognizer that always fails with Err. It stands in for a
// backend whose client could not be created so callers degrade per document.
type Unavailable struct {
	Err error
}

// Recognize implements Recognizer.
func (u Unavailable) Recognize(context.Context, []byte, string) (*Result, error) {
	return nil, WrapOCRError("Recognize", u.Err, "OCR backend unavailable")
}

// credentialOptions returns client options for the credentials found in env.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

func validateInput(op string, data []byte, mimeType string) error {
	if len(data) > MaxFileSizeBytes {
		return WrapOCRError(op, ErrFileTooLarge, formatSize(len(data)))
	}
	switch mimeType {
	case MimePNG, MimeJPEG:
	case MimePDF:
		if len(data) < 4 || string(data[:4]) != "%PDF" {
			return WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
		}
	default:
		return WrapOCRError(op, ErrUnsupportedFormat, mimeType)
	}
	return nil
}
