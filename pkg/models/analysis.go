package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Core keys of a serialized AnalysisRecord. Enrichment keys never override them.
const (
	KeyFilename       = "filename"
	KeyPredictedLabel = "predicted_label"
	KeyConfidence     = "confidence"
	KeyReasoning      = "reasoning"
	KeyLatency        = "latency_s"
	KeyCPUPercent     = "cpu_percent"
)

// Enrichment keys produced by the text and table prompts.
const (
	KeySummary            = "summary"
	KeyConfirmedLabel     = "confirmed_label"
	KeyInvoiceNumber      = "invoice_number"
	KeyTotalAmount        = "total_amount"
	KeyInvoiceDate        = "invoice_date"
	KeyDueDate            = "due_date"
	KeyVendorName         = "vendor_name"
	KeyTaxRate            = "tax_rate"
	KeyTaxAmount          = "tax_amount"
	KeySubtotal           = "subtotal"
	KeyDatasetType        = "dataset_type"
	KeyTopVendors         = "top_vendors"
	KeyAverageTransaction = "average_transaction"
	KeyInsights           = "insights"
)

// TabularLabel is the predicted label of every spreadsheet analysis.
const TabularLabel = "Tabular Data"

var coreKeys = map[string]bool{
	KeyFilename:       true,
	KeyPredictedLabel: true,
	KeyConfidence:     true,
	KeyReasoning:      true,
	KeyLatency:        true,
	KeyCPUPercent:     true,
}

// IsCoreKey reports whether key belongs to the fixed part of a record.
func IsCoreKey(key string) bool {
	return coreKeys[key]
}

// Confidence is either a score in [0,1] or "N/A" for tabular analyses.
type Confidence struct {
	value         float64
	notApplicable bool
}

// ConfidenceOf wraps a classifier score.
func ConfidenceOf(v float64) Confidence {
	return Confidence{value: v}
}

// NotApplicable is the confidence of analyses that were not classified.
func NotApplicable() Confidence {
	return Confidence{notApplicable: true}
}

// Value returns the score and whether one exists.
func (c Confidence) Value() (float64, bool) {
	return c.value, !c.notApplicable
}

func (c Confidence) String() string {
	if c.notApplicable {
		return "N/A"
	}
	return strconv.FormatFloat(c.value, 'f', -1, 64)
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.notApplicable {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(c.value)
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte(`"N/A"`)) {
		*c = NotApplicable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = ConfidenceOf(v)
	return nil
}

// Enrichment is the loosely typed record returned by the AI service.
// Values are whatever the JSON decoder produced: string, json.Number, bool,
// nil, []any or map[string]any.
type Enrichment map[string]any

// Summary returns the summary value when it is a non-empty string.
func (e Enrichment) Summary() (string, bool) {
	s, ok := e[KeySummary].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Clone returns a shallow copy.
func (e Enrichment) Clone() Enrichment {
	out := make(Enrichment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// AnalysisRecord is the unified result of analyzing one uploaded file.
// It serializes to a flat JSON object: the core keys followed by every
// enrichment key that does not collide with one of them.
type AnalysisRecord struct {
	Filename       string
	PredictedLabel string
	Confidence     Confidence
	Reasoning      string
	LatencySeconds float64
	CPUPercent     float64
	Enrichment     Enrichment
}

// Summary returns the record's summary, which the pipeline always sets.
func (r *AnalysisRecord) Summary() string {
	s, _ := r.Enrichment.Summary()
	return s
}

// Fields returns the flattened key/value view of the record.
func (r *AnalysisRecord) Fields() map[string]any {
	out := make(map[string]any, len(coreKeys)+len(r.Enrichment))
	for k, v := range r.Enrichment {
		if IsCoreKey(k) {
			continue
		}
		out[k] = v
	}
	out[KeyFilename] = r.Filename
	out[KeyPredictedLabel] = r.PredictedLabel
	out[KeyConfidence] = r.Confidence
	out[KeyReasoning] = r.Reasoning
	out[KeyLatency] = r.LatencySeconds
	out[KeyCPUPercent] = r.CPUPercent
	return out
}

func (r AnalysisRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

func (r *AnalysisRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	rec := AnalysisRecord{Enrichment: Enrichment{}}
	for k, v := range raw {
		var err error
		switch k {
		case KeyFilename:
			err = json.Unmarshal(v, &rec.Filename)
		case KeyPredictedLabel:
			err = json.Unmarshal(v, &rec.PredictedLabel)
		case KeyConfidence:
			err = json.Unmarshal(v, &rec.Confidence)
		case KeyReasoning:
			err = json.Unmarshal(v, &rec.Reasoning)
		case KeyLatency:
			err = json.Unmarshal(v, &rec.LatencySeconds)
		case KeyCPUPercent:
			err = json.Unmarshal(v, &rec.CPUPercent)
		default:
			var val any
			d := json.NewDecoder(bytes.NewReader(v))
			d.UseNumber()
			err = d.Decode(&val)
			rec.Enrichment[k] = val
		}
		if err != nil {
			return err
		}
	}

	*r = rec
	return nil
}
