package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/joe"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JOE listings export (.xlsx or .csv) into the database",
	Run: func(cmd *cobra.Command, _ []string) {
		importJobs(cmd)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("file", "", "a downloaded JOE export to import")
	importCmd.Flags().Bool("url", false, "download the export from source.url (the public JOE endpoint by default)")
	importCmd.MarkFlagsMutuallyExclusive("file", "url")
	importCmd.MarkFlagsOneRequired("file", "url")
}

func importJobs(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	data, source, err := readExport(ctx, cmd, config, logger)
	if err != nil {
		logger.Fatal("reading the export", zap.Error(err), hint(err))
	}

	records, err := joe.Parse(data, logger)
	if err != nil {
		logger.Fatal("parsing the export", zap.String("source", source), zap.Error(err), hint(err))
	}
	logger.Info("parsed jobs", zap.String("source", source), zap.Int("count", len(records)))

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	if config.Backup != nil && config.Backup.Enabled {
		path, err := db.BackupIfNewDay(ctx)
		if err != nil {
			logger.Fatal("backing up the database", zap.Error(err))
		}
		if path != "" {
			logger.Info("database backed up before import", zap.String("backup", path))
		}
	}

	counts := joe.NewImporter(db, logger).Import(ctx, records)
	logger.Info("import finished",
		zap.Int("inserted", counts.Inserted),
		zap.Int("updated", counts.Updated),
		zap.Int("unchanged", counts.Unchanged),
		zap.Int64("expired", counts.Expired),
		zap.Int("errors", counts.Errors),
	)
}

func readExport(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) ([]byte, string, error) {
	if path, _ := cmd.Flags().GetString("file"); strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, errors.Wrapf(err, "read %s", path)
		}
		return data, path, nil
	}

	client := joe.NewClient(logger)
	if config.Source != nil {
		if config.Source.URL != "" {
			client.URL = config.Source.URL
		}
		if config.Source.UserAgent != "" {
			client.UserAgent = config.Source.UserAgent
		}
	}

	logger.Info("downloading the export", zap.String("url", client.URL))
	data, err := client.Download(ctx)
	return data, client.URL, err
}
