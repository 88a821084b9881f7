package enrichment

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"findoc/pkg/models"
)

// ParseEmbeddedObject extracts the JSON object the model embedded in its reply.
//
// The span from the first '{' to the last '}' is decoded as one object. This
// is best-effort: when there is no such span, or it is not exactly one valid
// object, the whole trimmed reply becomes the summary and nothing else is set.
// Numbers are kept as json.Number so amounts keep their original digits.
func ParseEmbeddedObject(raw string) models.Enrichment {
	if obj, ok := decodeObjectSpan(raw); ok {
		return obj
	}
	return models.Enrichment{models.KeySummary: strings.TrimSpace(raw)}
}

func decodeObjectSpan(raw string) (models.Enrichment, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return models.Enrichment(obj), true
}
