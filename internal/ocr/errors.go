package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrFileTooLarge is returned when the input exceeds the synchronous size limit (20MB).
	ErrFileTooLarge = errors.New("file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when data declared as PDF lacks a PDF header.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrUnsupportedFormat is returned for MIME types no backend accepts.
	ErrUnsupportedFormat = errors.New("unsupported OCR input format")

	// ErrOCRFailed is returned when the Google Cloud service fails to process the document.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS is configured and no default credentials exist.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrTooManyPages is returned when a PDF has too many pages for synchronous processing.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when no text was recognized.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError wraps errors with the operation that failed.
type OCRError struct {
	// Op is the operation that failed (e.g., "Recognize", "NewVisionRecognizer").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// WrapOCRError wraps err as an *OCRError unless it already is one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return &OCRError{Op: op, Err: err, Details: details}
}

func formatSize(n int) string {
	return fmt.Sprintf("file size: %d bytes", n)
}
