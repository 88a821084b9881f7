package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"findoc/internal/logger"
	"findoc/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Analyze financial documents and print the JSON records",
	Long: `Run each file through extraction, classification and AI enrichment and
print one JSON record per file.

Supported inputs: .pdf, .png, .jpg, .jpeg, .csv, .xlsx, .xls. Unsupported or
unreadable files still produce a record with label "Unknown".

Environment variables:
  GEMINI_API_KEY or OPENAI_API_KEY - enrichment credentials
  ENRICHMENT_PROVIDER - gemini (default) or openai
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - OCR for images and scanned PDFs
  OCR_PROVIDER - vision (default) or documentai
  TAXONOMY_FILE - optional YAML keyword taxonomy`,
	Example: `  # Analyze one invoice
  findoc analyze invoice.pdf

  # Analyze several files and save the records
  findoc analyze receipt.jpg ledger.xlsx -o records.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().Bool("compact", false, "Print compact JSON")
	analyzeCmd.Flags().Duration("timeout", 5*time.Minute, "Overall processing timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	outputPath, _ := cmd.Flags().GetString("output")
	compact, _ := cmd.Flags().GetBool("compact")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := signalContext(timeout, log)
	defer cancel()

	a, err := newApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	records := make([]*models.AnalysisRecord, 0, len(args))
	for _, path := range args {
		data, err := readInputFile(path, a.cfg.MaxUploadBytes)
		if err != nil {
			return err
		}

		rec, err := a.analyzer.Analyze(ctx, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("analysis of %s failed: %w", path, err)
		}
		records = append(records, rec)
	}

	var payload any = records
	if len(records) == 1 {
		payload = records[0]
	}

	var out []byte
	if compact {
		out, err = json.Marshal(payload)
	} else {
		out, err = json.MarshalIndent(payload, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	out = append(out, '\n')

	if outputPath == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("records", len(records)).
		Msg("Analysis records written")
	return nil
}
