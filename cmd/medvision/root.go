package main

import (
	"github.com/spf13/cobra"

	"github.com/healthchain/medvision/internal/api"
	"github.com/healthchain/medvision/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "medvision",
	Short: "Medical report analysis service backed by a vision language model",
	Long: `Medvision turns uploaded medical reports (images or multi-page PDFs)
into structured JSON using a vision-capable language model.

The pipeline includes:
  - Page rasterization of PDFs at a fixed resolution
  - Per-page model extraction with bounded retries and a fallback prompt
  - Response sanitization and schema validation of model output
  - Grouping of per-page results into logical reports by report type`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.medvision/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
