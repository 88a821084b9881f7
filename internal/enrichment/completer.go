// Package enrichment asks a generative model to summarize a document or a
// dataset and turns its free-form reply into a structured record.
//
// The model is reached through a Completer. Two are provided: the Gemini
// generateContent REST API and OpenAI chat completions. Either can be wrapped
// in a circuit breaker. Calls are never retried.
package enrichment

import (
	"context"
	"errors"
	"fmt"
)

// Completer sends one prompt to a generative model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrMissingAPIKey is returned by completers constructed without a key.
	ErrMissingAPIKey = errors.New("enrichment API key is not configured")

	// ErrEmptyResponse is returned when the service replies without any text.
	ErrEmptyResponse = errors.New("enrichment service returned no content")
)

// StatusError reports a non-2xx reply from an HTTP completion API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Body)
}
