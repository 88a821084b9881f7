// Package taxonomy holds the ordered category → keyword table that drives
// document classification and reasoning.
//
// A Taxonomy is built once (from the built-in table or a YAML file) and is
// read-only afterwards, so one value can be shared by concurrent analyses.
// Declaration order matters: the classifier breaks score ties in favour of
// the category declared first.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a document class label.
type Category string

// Built-in categories, in declaration order.
const (
	Invoice         Category = "Invoice"
	Receipt         Category = "Receipt"
	PurchaseOrder   Category = "Purchase Order"
	BankStatement   Category = "Bank Statement"
	TaxDocument     Category = "Tax Document"
	SalarySlip      Category = "Salary Slip"
	FinancialReport Category = "Financial Report"
	Unknown         Category = "Unknown"
)

var (
	// ErrEmptyTaxonomy is returned when no categories are declared.
	ErrEmptyTaxonomy = errors.New("taxonomy declares no categories")

	// ErrDuplicateCategory is returned when a category is declared twice.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrUnknownHasKeywords is returned when the Unknown category is given keywords.
	ErrUnknownHasKeywords = errors.New("the Unknown category cannot carry keywords")
)

// Entry pairs a category with its keyword phrases.
type Entry struct {
	Category Category `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is an immutable ordered list of entries. Unknown is always last.
type Taxonomy struct {
	entries []Entry
	index   map[Category]int
}

var defaultEntries = []Entry{
	{Invoice, []string{"invoice", "bill to", "total", "due date", "balance due", "invoice no", "amount due"}},
	{Receipt, []string{"receipt", "thank you for your purchase", "payment received", "transaction id", "paid by"}},
	{PurchaseOrder, []string{"purchase order", "vendor", "order number", "buyer", "supplier", "ordered by"}},
	{BankStatement, []string{"account number", "transaction", "debit", "credit", "balance", "statement period", "ifsc"}},
	{TaxDocument, []string{"tax", "gst", "vat", "income", "pan", "filing", "assessment year", "financial year"}},
	{SalarySlip, []string{"employee id", "salary", "earnings", "deductions", "net pay", "basic pay", "hra"}},
	{FinancialReport, []string{"assets", "liabilities", "equity", "profit", "loss", "cash flow", "balance sheet"}},
	{Unknown, nil},
}

// Default returns the built-in financial document taxonomy.
func Default() *Taxonomy {
	t, err := New(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: built-in table is invalid: %v", err))
	}
	return t
}

// New validates entries and returns a taxonomy holding its own copy of them.
// Keywords are trimmed and lower-cased; blank keywords are dropped. Unknown is
// appended when missing and moved to the end when declared elsewhere.
func New(entries []Entry) (*Taxonomy, error) {
	const op = "taxonomy.New"

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyTaxonomy)
	}

	t := &Taxonomy{index: make(map[Category]int, len(entries)+1)}
	for _, e := range entries {
		name := Category(strings.TrimSpace(string(e.Category)))
		if name == "" {
			return nil, fmt.Errorf("%s: category name is empty", op)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("%s: %w: %s", op, ErrDuplicateCategory, name)
		}

		keywords := normalizeKeywords(e.Keywords)
		if name == Unknown {
			if len(keywords) > 0 {
				return nil, fmt.Errorf("%s: %w", op, ErrUnknownHasKeywords)
			}
			t.index[name] = -1
			continue
		}

		t.index[name] = len(t.entries)
		t.entries = append(t.entries, Entry{Category: name, Keywords: keywords})
	}

	t.index[Unknown] = len(t.entries)
	t.entries = append(t.entries, Entry{Category: Unknown})

	return t, nil
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

type fileFormat struct {
	Categories []Entry `yaml:"categories"`
}

// LoadFile reads a taxonomy from a YAML document of the form
//
//	categories:
//	  - name: Invoice
//	    keywords: [invoice, bill to, total]
func LoadFile(path string) (*Taxonomy, error) {
	const op = "taxonomy.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", op, path, err)
	}

	t, err := New(doc.Categories)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return t, nil
}

// Categories returns the declared categories in order, Unknown last.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Category
	}
	return out
}

// Entries returns a copy of the ordered entries.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Category: e.Category, Keywords: append([]string(nil), e.Keywords...)}
	}
	return out
}

// Keywords returns a copy of the keyword phrases for c.
func (t *Taxonomy) Keywords(c Category) ([]string, bool) {
	i, ok := t.index[c]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t.entries[i].Keywords...), true
}

// Has reports whether c is declared.
func (t *Taxonomy) Has(c Category) bool {
	_, ok := t.index[c]
	return ok
}

// Len returns the number of categories including Unknown.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}
