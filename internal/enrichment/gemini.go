package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"

	// maxErrorBody bounds how much of an error reply is kept.
	maxErrorBody = 512
)

// GeminiCompleter calls the Gemini generateContent REST endpoint.
type GeminiCompleter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption configures a GeminiCompleter.
type GeminiOption func(*GeminiCompleter)

// WithGeminiModel selects the model, e.g. "gemini-2.0-flash".
func WithGeminiModel(model string) GeminiOption {
	return func(c *GeminiCompleter) {
		if model != "" {
			c.model = strings.TrimPrefix(model, "models/")
		}
	}
}

// WithGeminiBaseURL points the completer at another endpoint (tests, proxies).
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiCompleter) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithGeminiHTTPClient replaces the default HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiCompleter) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewGeminiCompleter returns a completer authenticated with apiKey.
func NewGeminiCompleter(apiKey string, opts ...GeminiOption) *GeminiCompleter {
	c := &GeminiCompleter{
		apiKey:     apiKey,
		model:      defaultGeminiModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "GeminiCompleter.Complete"

	if c.apiKey == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: Gemini API call failed: %w", op, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", &StatusError{Service: "Gemini", StatusCode: resp.StatusCode, Body: strings.TrimSpace(text)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%s: parse Gemini response: %w", op, err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return sb.String(), nil
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), "REDACTED")
	return &redacted
}
