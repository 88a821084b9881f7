package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of PDF pages for synchronous processing
	MaxPagesSync = 5
)

// VisionRecognizer implements Recognizer using Google Cloud Vision API.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer creates a recognizer with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env,
// and falls back to application default credentials.
func NewVisionRecognizer(ctx context.Context) (*VisionRecognizer, error) {
	const op = "NewVisionRecognizer"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &VisionRecognizer{client: client}, nil
}

// Recognize runs document text detection on an image or PDF.
func (g *VisionRecognizer) Recognize(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	const op = "VisionRecognizer.Recognize"
	startTime := time.Now()

	if err := validateInput(op, data, mimeType); err != nil {
		return nil, err
	}

	var (
		pages []*visionpb.AnnotateImageResponse
		err   error
	)
	if mimeType == MimePDF {
		pages, err = g.annotateFile(ctx, data)
	} else {
		pages, err = g.annotateImage(ctx, data)
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	result, err := collectVisionPages(pages)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	result.ProcessingDuration = time.Since(startTime)

	return result, nil
}

func (g *VisionRecognizer) annotateImage(ctx context.Context, data []byte) ([]*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}
	return resp.Responses, nil
}

func (g *VisionRecognizer) annotateFile(ctx context.Context, data []byte) ([]*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: MimePDF,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, fmt.Errorf("%w: Vision API error: %s", ErrOCRFailed, fileResp.Error.GetMessage())
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, len(fileResp.Responses))
	}
	return fileResp.Responses, nil
}

// collectVisionPages joins the full-text annotation of every page.
func collectVisionPages(pages []*visionpb.AnnotateImageResponse) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		text            strings.Builder
		confidenceSum   float32
		confidenceCount int
		languages       = make(map[string]bool)
	)

	for i, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, i+1, page.Error.GetMessage())
		}
		annotation := page.FullTextAnnotation
		if annotation == nil {
			continue
		}

		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(annotation.Text)

		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
			if p.Property == nil {
				continue
			}
			for _, lang := range p.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languages[lang.LanguageCode] = true
				}
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyDocument
	}

	result := &Result{
		Text:          text.String(),
		PageCount:     len(pages),
		LanguageCodes: sortedKeys(languages),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	return result, nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close closes the underlying Vision client.
func (g *VisionRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
