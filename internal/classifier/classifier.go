// Package classifier assigns a document category to extracted text by
// counting whole-word keyword hits against a taxonomy, and explains the
// decision in a short natural-language sentence.
package classifier

import (
	"math"
	"regexp"
	"strings"

	"findoc/internal/taxonomy"
)

// saturation is the number of distinct keyword hits that yields full confidence.
const saturation = 5

// Result is the outcome of classifying one text.
type Result struct {
	Label      taxonomy.Category `json:"label"`
	Confidence float64           `json:"confidence"`

	// Matched lists the winning category's keywords found as whole words.
	Matched []string `json:"-"`
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

type categoryPatterns struct {
	category taxonomy.Category
	patterns []keywordPattern
}

// Classifier scores text against a taxonomy. It is safe for concurrent use.
type Classifier struct {
	categories []categoryPatterns
}

// New compiles the keyword patterns of tx once.
func New(tx *taxonomy.Taxonomy) *Classifier {
	entries := tx.Entries()
	c := &Classifier{categories: make([]categoryPatterns, 0, len(entries))}
	for _, e := range entries {
		cp := categoryPatterns{category: e.Category}
		for _, kw := range e.Keywords {
			cp.patterns = append(cp.patterns, keywordPattern{
				keyword: kw,
				re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
			})
		}
		c.categories = append(c.categories, cp)
	}
	return c
}

// Classify returns the category with the strictly highest number of distinct
// whole-word keyword hits. Ties keep the earlier declared category; no hits
// at all yields Unknown with zero confidence.
func (c *Classifier) Classify(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Label: taxonomy.Unknown}
	}

	lower := strings.ToLower(text)
	best := Result{Label: taxonomy.Unknown}
	bestScore := 0

	for _, cp := range c.categories {
		var matched []string
		for _, p := range cp.patterns {
			if p.re.MatchString(lower) {
				matched = append(matched, p.keyword)
			}
		}
		if len(matched) > bestScore {
			bestScore = len(matched)
			best = Result{Label: cp.category, Matched: matched}
		}
	}

	best.Confidence = confidence(bestScore)
	return best
}

func confidence(score int) float64 {
	ratio := math.Min(float64(score)/saturation, 1)
	return math.Round(ratio*100) / 100
}
