package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/export"
	"github.com/spigell/joe-enricher/internal/store"
)

const defaultExportPath = "data/exports/job_matches.csv"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all jobs, best matches first, to a .csv or .xlsx file",
	Run: func(cmd *cobra.Command, _ []string) {
		exportJobs(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", defaultExportPath, "output file, the extension selects the format")
}

func exportJobs(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	output, _ := cmd.Flags().GetString("output")
	if _, err := export.FormatFor(output); err != nil {
		logger.Fatal("checking the output path", zap.Error(err), hint(err))
	}

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	records, err := db.List(ctx, store.Filter{OrderBy: store.OrderFitScore})
	if err != nil {
		logger.Fatal("listing jobs", zap.Error(err))
	}
	if len(records) == 0 {
		logger.Warn("no jobs to export")
		return
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		logger.Fatal("creating the output directory", zap.Error(err))
	}
	if err := export.Write(output, records); err != nil {
		logger.Fatal("exporting jobs", zap.Error(err), hint(err))
	}

	logger.Info("exported jobs", zap.String("output", output), zap.Int("count", len(records)))
}
