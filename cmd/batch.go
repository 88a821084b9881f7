package cmd

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"findoc/internal/extraction"
	"findoc/internal/logger"
	"findoc/internal/pipeline"
	"findoc/internal/sheets"
	"findoc/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Analyze every supported document in a folder",
	Long: `Analyze all supported documents in a folder (recursively) in parallel and
write one row per file to a CSV file, a Google Sheet, or both.

Files that cannot be read or whose analysis breaks still get a row whose
Summary column starts with "Internal error:".

Environment variables:
  BATCH_WORKERS - number of parallel workers (default: 4)
  GOOGLE_SHEET_URL - spreadsheet to append to when --sheet is given
  GOOGLE_SHEET_WORKSHEET - worksheet name (default: Analysis)`,
	Example: `  # Analyze a folder into a CSV file
  findoc batch ./documents -o results.csv

  # Append results to the configured Google Sheet
  findoc batch ./documents --sheet

  # Dry run: list the files that would be analyzed
  findoc batch ./documents --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "", "CSV output path (default: stdout unless --sheet)")
	batchCmd.Flags().Bool("sheet", false, "Append results to GOOGLE_SHEET_URL")
	batchCmd.Flags().Int("workers", 0, "Parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().Bool("dry-run", false, "List files without analyzing them")
	batchCmd.Flags().Duration("timeout", 30*time.Minute, "Overall processing timeout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	workers, _ := cmd.Flags().GetInt("workers")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	files, err := findDocuments(folderPath)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No supported documents found in folder.")
		return nil
	}

	if dryRun {
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	}

	ctx, cancel := signalContext(timeout, log)
	defer cancel()

	a, err := newApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if workers <= 0 {
		workers = a.cfg.BatchWorkers
	}
	if toSheet && a.cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required with --sheet")
	}

	log.Info().
		Str("folder", folderPath).
		Int("files", len(files)).
		Int("workers", workers).
		Bool("sheet", toSheet).
		Msg("Starting batch analysis")

	fmt.Fprintf(os.Stderr, "Analyzing %d documents with %d workers...\n", len(files), workers)

	docs := make([]pipeline.Document, len(files))
	for i, path := range files {
		path := path
		docs[i] = pipeline.Document{
			Filename: filepath.Base(path),
			Load: func() ([]byte, error) {
				return readInputFile(path, a.cfg.MaxUploadBytes)
			},
		}
	}

	outcomes := pipeline.RunBatch(ctx, a.analyzer, docs, workers, func(done, total int, out pipeline.Outcome) {
		status := "ok"
		detail := ""
		if out.Err != nil {
			status = "error"
			detail = out.Err.Error()
		} else {
			detail = fmt.Sprintf("%s, %s", out.Record.PredictedLabel, out.Record.Confidence)
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] %s - %s (%s)\n", done, total, out.Filename, status, detail)
	})

	failed := 0
	labels := map[string]int{}
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			continue
		}
		labels[out.Record.PredictedLabel]++
	}

	rows := pipeline.ExportRows(outcomes)

	if outputPath != "" || !toSheet {
		if err := writeCSV(outputPath, rows); err != nil {
			return err
		}
	}

	if toSheet {
		svc, err := sheets.NewService(ctx, a.cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := svc.AppendRows(ctx, a.cfg.GoogleSheetWorksheet, rows); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Sheet: %s (%d rows)\n", a.cfg.GoogleSheetWorksheet, len(rows))
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stderr, "Analyzed: %d\n", len(outcomes)-failed)
	for _, label := range sortedLabels(labels) {
		fmt.Fprintf(os.Stderr, "  %-20s %d\n", label, labels[label])
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Errors: %d\n", failed)
	}

	log.Info().
		Int("total", len(outcomes)).
		Int("errors", failed).
		Msg("Batch analysis completed")
	return nil
}

// findDocuments lists supported files under root in lexical order.
func findDocuments(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && extraction.Supported(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func writeCSV(path string, rows [][]string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write(models.ExportHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func sortedLabels(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
