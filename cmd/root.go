package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"findoc/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "findoc",
	Short: "findoc - AI-assisted analysis of financial documents",
	Long: `findoc classifies financial documents and enriches them with an AI model.

PDFs, scanned images, CSV files and Excel workbooks are converted to text or
a table, classified against a keyword taxonomy (invoice, receipt, bank
statement, ...) and summarized by Gemini or OpenAI. Results are printed as
JSON, written to CSV, appended to a Google Sheet or served over HTTP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("findoc executed without subcommand")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
