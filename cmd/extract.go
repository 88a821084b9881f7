package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"findoc/internal/classifier"
	"findoc/internal/extraction"
	"findoc/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text or a table from a document without AI enrichment",
	Long: `Convert a document to text or a table the same way the analysis pipeline
does, and optionally classify the text against the keyword taxonomy.

PDFs use their embedded text layer; scanned PDFs and images go through Google
Cloud OCR (Vision by default, Document AI with OCR_PROVIDER=documentai).
CSV and Excel files are parsed as tables.`,
	Example: `  # Print the text of a PDF
  findoc extract invoice.pdf

  # Classify a scanned receipt
  findoc extract receipt.png --classify

  # Save a spreadsheet as JSON
  findoc extract ledger.xlsx --json -o ledger.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON output of the extract command.
type ExtractOutput struct {
	FileName   string     `json:"file_name"`
	FileSize   int        `json:"file_size"`
	Kind       string     `json:"kind"`
	Text       string     `json:"text,omitempty"`
	Columns    []string   `json:"columns,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Label      string     `json:"label,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Duration   string     `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Bool("classify", false, "Classify extracted text against the keyword taxonomy")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	classify, _ := cmd.Flags().GetBool("classify")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]
	log.Info().
		Str("file", path).
		Bool("json", jsonOutput).
		Bool("classify", classify).
		Int("timeout", timeoutSecs).
		Msg("Starting extraction")

	ctx, cancel := signalContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	a, err := newApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := readInputFile(path, a.cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	if !extraction.Supported(path) {
		log.Warn().Str("file", path).Msg("File type is not supported")
	}

	start := time.Now()
	out := ExtractOutput{
		FileName: filepath.Base(path),
		FileSize: len(data),
	}

	switch res := a.extractor.Extract(ctx, out.FileName, data).(type) {
	case *extraction.TextResult:
		out.Kind = "text"
		out.Text = res.Content
		if classify {
			result := classifier.New(a.taxonomy).Classify(res.Content)
			out.Label = string(result.Label)
			out.Confidence = &result.Confidence
			out.Reasoning = classifier.NewReasoner(a.taxonomy).Explain(res.Content, result.Label)
		}
	case *extraction.TableResult:
		out.Kind = "table"
		out.Columns = res.Columns
		out.Rows = res.Rows
	case *extraction.FailedResult:
		return fmt.Errorf("extraction failed: %s", res.Reason)
	}
	out.Duration = time.Since(start).String()

	log.Info().
		Str("kind", out.Kind).
		Int("text_length", len(out.Text)).
		Int("rows", len(out.Rows)).
		Str("duration", out.Duration).
		Msg("Extraction completed successfully")

	return writeExtractOutput(out, outputPath, jsonOutput, log)
}

func writeExtractOutput(out ExtractOutput, outputPath string, jsonOutput bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		var err error
		outputData, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		var b strings.Builder
		if out.Label != "" {
			fmt.Fprintf(&b, "=== Classification ===\nLabel: %s\nConfidence: %.2f\n%s\n\n=== Extracted Text ===\n\n",
				out.Label, *out.Confidence, out.Reasoning)
		}
		if out.Kind == "table" {
			w := csv.NewWriter(&b)
			_ = w.Write(out.Columns)
			_ = w.WriteAll(out.Rows)
			if err := w.Error(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
		} else {
			b.WriteString(out.Text)
		}
		outputData = []byte(b.String())
	}

	if outputPath == "" {
		if _, err := os.Stdout.Write(outputData); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("Extraction results written to file")
	return nil
}
