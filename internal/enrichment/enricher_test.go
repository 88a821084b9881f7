package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findoc/internal/extraction"
	"findoc/internal/taxonomy"
	"findoc/pkg/models"
)

type recordingCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (r *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

const invoiceText = "Invoice Number: 123, Total: 500, Due Date: 2024-01-01, Bill To: Acme"

func TestParseEmbeddedObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Enrichment
	}{
		{
			name: "object with surrounding prose",
			raw:  `prefix {"summary":"S","confirmed_label":"Invoice"} suffix`,
			want: models.Enrichment{"summary": "S", "confirmed_label": "Invoice"},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"summary\": \"Fenced\", \"total_amount\": 1200.50}\n```",
			want: models.Enrichment{"summary": "Fenced", "total_amount": json.Number("1200.50")},
		},
		{
			name: "no braces",
			raw:  "  The model just wrote prose.  ",
			want: models.Enrichment{"summary": "The model just wrote prose."},
		},
		{
			name: "invalid object",
			raw:  `{"summary": "unterminated}`,
			want: models.Enrichment{"summary": `{"summary": "unterminated}`},
		},
		{
			name: "two objects",
			raw:  `{"a":1} and {"b":2}`,
			want: models.Enrichment{"summary": `{"a":1} and {"b":2}`},
		},
		{
			name: "closing brace before opening",
			raw:  `} nothing {`,
			want: models.Enrichment{"summary": `} nothing {`},
		},
		{
			name: "nested values",
			raw:  `{"top_vendors":["Acme","Globex"],"insights":{"outliers":0},"invoice_number":null}`,
			want: models.Enrichment{
				"top_vendors":    []any{"Acme", "Globex"},
				"insights":       map[string]any{"outliers": json.Number("0")},
				"invoice_number": nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEmbeddedObject(tt.raw))
		})
	}
}

func TestEnrichTextSkipsUnreadableText(t *testing.T) {
	for _, text := range []string{"", "   ", "too short to matter"} {
		c := &recordingCompleter{reply: `{"summary":"never"}`}
		got := New(c).EnrichText(context.Background(), text, taxonomy.Unknown)

		assert.Empty(t, c.prompts)
		assert.Equal(t, UnavailableSummary, got[models.KeySummary])
		assert.Equal(t, "N/A", got[models.KeyConfirmedLabel])
		assert.Contains(t, got, models.KeyVendorName)
		assert.Nil(t, got[models.KeyVendorName])
	}
}

func TestEnrichTextParsesReply(t *testing.T) {
	c := &recordingCompleter{reply: "Sure! Here it is:\n{\"summary\":\"An invoice from Acme.\",\"confirmed_label\":\"Invoice\",\"invoice_number\":\"123\"}\nThanks."}

	got := New(c).EnrichText(context.Background(), invoiceText, taxonomy.Invoice)

	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], invoiceText)
	assert.Contains(t, c.prompts[0], "The system classified this as: Invoice.")
	assert.Equal(t, "An invoice from Acme.", got[models.KeySummary])
	assert.Equal(t, "123", got[models.KeyInvoiceNumber])
	assert.NotContains(t, got, models.KeyVendorName)
}

func TestEnrichTextTruncatesInput(t *testing.T) {
	c := &recordingCompleter{reply: `{"summary":"ok"}`}
	text := strings.Repeat("é", MaxPromptChars+1000)

	New(c).EnrichText(context.Background(), text, taxonomy.Receipt)

	require.Len(t, c.prompts, 1)
	assert.Equal(t, MaxPromptChars, strings.Count(c.prompts[0], "é"))
}

func TestEnrichTextTransportFailure(t *testing.T) {
	c := &recordingCompleter{err: errors.New("connection refused")}

	got := New(c).EnrichText(context.Background(), invoiceText, taxonomy.Invoice)

	assert.Equal(t, "AI enrichment error: connection refused", got[models.KeySummary])
	assert.Equal(t, "N/A", got[models.KeyConfirmedLabel])
	assert.Contains(t, got, models.KeySubtotal)
	assert.Nil(t, got[models.KeySubtotal])
}

func TestEnrichTextTimeout(t *testing.T) {
	slow := CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	start := time.Now()
	got := New(slow, WithTimeout(20*time.Millisecond)).EnrichText(context.Background(), invoiceText, taxonomy.Invoice)

	assert.Less(t, time.Since(start), 5*time.Second)
	summary, _ := got.Summary()
	assert.Contains(t, summary, "context deadline exceeded")
}

func TestEnrichTextWithoutCompleter(t *testing.T) {
	got := New(nil).EnrichText(context.Background(), invoiceText, taxonomy.Invoice)
	summary, _ := got.Summary()
	assert.Contains(t, summary, ErrMissingAPIKey.Error())
}

func tableOf(n int) *extraction.TableResult {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("vendor-%02d", i), fmt.Sprintf("%d.00", i*10)}
	}
	return &extraction.TableResult{Columns: []string{"vendor", "amount"}, Rows: rows}
}

func TestEnrichTablePreviewsFirstRows(t *testing.T) {
	c := &recordingCompleter{reply: `{"dataset_type":"transactions","summary":"Ledger.","top_vendors":["vendor-00"]}`}

	got := New(c).EnrichTable(context.Background(), tableOf(25))

	require.Len(t, c.prompts, 1)
	prompt := c.prompts[0]
	assert.Contains(t, prompt, "vendor,amount\nvendor-00,0.00\n")
	assert.Contains(t, prompt, "vendor-19")
	assert.NotContains(t, prompt, "vendor-20")
	assert.Equal(t, "transactions", got[models.KeyDatasetType])
	assert.Equal(t, []any{"vendor-00"}, got[models.KeyTopVendors])
}

func TestEnrichTableFailureKeepsOnlySummary(t *testing.T) {
	c := &recordingCompleter{err: &StatusError{Service: "Gemini", StatusCode: 503, Body: "overloaded"}}

	got := New(c).EnrichTable(context.Background(), tableOf(3))

	assert.Equal(t, models.Enrichment{models.KeySummary: "AI enrichment error: Gemini API error 503: overloaded"}, got)
}

func TestTablePreviewQuotesCells(t *testing.T) {
	preview, err := TablePreview(&extraction.TableResult{
		Columns: []string{"name", "note"},
		Rows:    [][]string{{"Acme, Inc.", `say "hi"`}},
	})
	require.NoError(t, err)
	assert.Equal(t, "name,note\n\"Acme, Inc.\",\"say \"\"hi\"\"\"\n", preview)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	c := &recordingCompleter{err: errors.New("boom")}
	b := NewBreakerCompleter(c, BreakerConfig{MinRequests: 5, FailureRatio: 0.6, Cooldown: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := b.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.False(t, IsCircuitOpen(err))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Complete(context.Background(), "p")
	assert.True(t, IsCircuitOpen(err))
	assert.Len(t, c.prompts, 5)

	got := New(b).EnrichText(context.Background(), invoiceText, taxonomy.Invoice)
	summary, _ := got.Summary()
	assert.Contains(t, summary, "temporarily disabled")
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	c := &recordingCompleter{err: context.Canceled}
	b := NewBreakerCompleter(c, BreakerConfig{MinRequests: 1, FailureRatio: 0.1, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = b.Complete(context.Background(), "p")
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
