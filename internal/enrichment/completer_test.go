package enrichment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "summarize this", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"summary\":"},{"text":"\"done\"}"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiCompleter("test-key", WithGeminiBaseURL(srv.URL+"/"), WithGeminiModel("models/gemini-2.0-flash"))
	got, err := c.Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"done"}`, got)
}

func TestGeminiCompleterErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"quota"}}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
				assert.Contains(t, se.Body, "quota")
			},
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:   "malformed envelope",
			status: http.StatusOK,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "parse Gemini response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGeminiCompleter("k", WithGeminiBaseURL(srv.URL)).Complete(context.Background(), "p")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestGeminiCompleterRedactsKey(t *testing.T) {
	c := NewGeminiCompleter("secret-key", WithGeminiBaseURL("http://127.0.0.1:1"))
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestCompletersRequireKey(t *testing.T) {
	_, err := NewGeminiCompleter("").Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewOpenAICompleter("", "").Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "describe the ledger", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"ledger\"}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "", WithOpenAIBaseURL(srv.URL+"/v1"))
	got, err := c.Complete(context.Background(), "describe the ledger")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ledger"}`, got)
}

func TestOpenAICompleterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAICompleter("sk-test", "gpt-4o", WithOpenAIBaseURL(srv.URL+"/v1")).Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
