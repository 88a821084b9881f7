package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type column struct {
	header string
	key    string
}

// exportColumns fixes the column order of batch exports.
var exportColumns = []column{
	{"Filename", KeyFilename},
	{"Predicted Label", KeyPredictedLabel},
	{"Confidence", KeyConfidence},
	{"Reasoning", KeyReasoning},
	{"Latency (s)", KeyLatency},
	{"CPU Usage (%)", KeyCPUPercent},
	{"Summary", KeySummary},
	{"Confirmed Label", KeyConfirmedLabel},
	{"Invoice Number", KeyInvoiceNumber},
	{"Total Amount", KeyTotalAmount},
	{"Invoice Date", KeyInvoiceDate},
	{"Due Date", KeyDueDate},
	{"Vendor Name", KeyVendorName},
	{"Tax Rate", KeyTaxRate},
	{"Tax Amount", KeyTaxAmount},
	{"Subtotal", KeySubtotal},
	{"Dataset Type", KeyDatasetType},
	{"Top Vendors", KeyTopVendors},
	{"Average Transaction", KeyAverageTransaction},
	{"Insights", KeyInsights},
}

// ExportHeader returns the batch export header row.
func ExportHeader() []string {
	out := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		out[i] = c.header
	}
	return out
}

// ExportRow renders r in ExportHeader order. Absent and null values become
// empty cells.
func (r *AnalysisRecord) ExportRow() []string {
	fields := r.Fields()
	out := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		out[i] = FormatValue(fields[c.key])
	}
	return out
}

// FailedExportRow renders a row for a file that produced no record at all.
func FailedExportRow(filename string, err error) []string {
	out := make([]string, len(exportColumns))
	out[0] = filename
	out[6] = fmt.Sprintf("Internal error: %v", err)
	return out
}

// FormatValue renders one JSON-ish value as a spreadsheet cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case Confidence:
		return val.String()
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
