package enrichment

import (
	"encoding/csv"
	"fmt"
	"strings"

	"findoc/internal/extraction"
	"findoc/internal/taxonomy"
)

const (
	// MaxPromptChars caps the document text embedded in a text prompt.
	MaxPromptChars = 6000

	// PreviewRows is the number of table rows shown to the model.
	PreviewRows = 20
)

const textPromptTemplate = `You are a professional financial document analysis AI.

The following text was extracted from a document:
%s

The system classified this as: %s.

Tasks:
1. Summarize the document contents in 3-4 lines.
2. Confirm if the classification '%s' is correct. If not, suggest a better type.
3. Extract key entities such as invoice number, total amount, date, vendor, and taxes.
4. Respond ONLY in strict JSON format like this:
{
    "summary": "...",
    "confirmed_label": "...",
    "invoice_number": "...",
    "total_amount": "...",
    "invoice_date": "...",
    "due_date": "...",
    "vendor_name": "...",
    "tax_rate": "...",
    "tax_amount": "...",
    "subtotal": "..."
}
`

const tablePromptTemplate = `You are a financial analytics AI assistant.

The user uploaded this dataset:
%s

Tasks:
1. Identify what kind of dataset this is (e.g., invoices, transactions, sales, etc.).
2. Compute insights such as:
    - Total revenue (sum of numeric columns)
    - Top vendors/customers by frequency
    - Average transaction
    - Detect anomalies or outliers
3. Provide a business-level summary.
4. Respond ONLY in strict JSON format:
{
    "dataset_type": "...",
    "summary": "...",
    "total_amount": "...",
    "top_vendors": ["..."],
    "average_transaction": "...",
    "insights": "..."
}
`

// BuildTextPrompt embeds at most MaxPromptChars characters of text and the
// classifier's label.
func BuildTextPrompt(text string, label taxonomy.Category) string {
	return fmt.Sprintf(textPromptTemplate, truncate(text, MaxPromptChars), label, label)
}

// BuildTablePrompt embeds a CSV preview of the first PreviewRows rows.
func BuildTablePrompt(table *extraction.TableResult) (string, error) {
	preview, err := TablePreview(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(tablePromptTemplate, preview), nil
}

// TablePreview renders the header and first PreviewRows rows as CSV.
func TablePreview(table *extraction.TableResult) (string, error) {
	head := table.Head(PreviewRows)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(head.Columns); err != nil {
		return "", fmt.Errorf("write preview header: %w", err)
	}
	if err := w.WriteAll(head.Rows); err != nil {
		return "", fmt.Errorf("write preview rows: %w", err)
	}
	return sb.String(), nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
