package classifier

import (
	"fmt"
	"strings"

	"findoc/internal/taxonomy"
)

// maxListedKeywords caps how many matched keywords a rationale names.
const maxListedKeywords = 6

// NoReasoning is returned when the text is empty or the label is not in the taxonomy.
const NoReasoning = "No reasoning could be generated because the document text is empty or the classification label is unrecognized."

// Reasoner produces a human-readable justification for a classification.
//
// Unlike the classifier it matches keywords by plain substring containment,
// so it may cite a keyword the whole-word scorer did not count.
type Reasoner struct {
	tax *taxonomy.Taxonomy
}

// NewReasoner returns a Reasoner over tx.
func NewReasoner(tx *taxonomy.Taxonomy) *Reasoner {
	return &Reasoner{tax: tx}
}

// Explain builds the rationale for label given the document text.
func (r *Reasoner) Explain(text string, label taxonomy.Category) string {
	keywords, ok := r.tax.Keywords(label)
	if strings.TrimSpace(text) == "" || !ok {
		return NoReasoning
	}

	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}

	if len(matched) == 0 {
		return fmt.Sprintf("The document was classified as '%s' based on general text context and semantic similarity with financial documents.", label)
	}

	listed := matched
	if len(listed) > maxListedKeywords {
		listed = listed[:maxListedKeywords]
	}
	reasoning := fmt.Sprintf("The document was classified as **%s** because it contains key indicative terms like: %s.", label, strings.Join(listed, ", "))
	if len(matched) > maxListedKeywords {
		reasoning += " ...and more."
	}
	return reasoning
}
