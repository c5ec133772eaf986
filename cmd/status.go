package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/filtering"
	"github.com/spigell/joe-enricher/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id> <status>",
	Short: "Record an application decision (new, applied, expired, rejected, accepted)",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		setStatus(args[0], args[1])
	},
}

var excludeCmd = &cobra.Command{
	Use:   "exclude <job-id>...",
	Short: "Append jobs to the exclude file so runs skip them",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		exclude(args)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(excludeCmd)
}

func setStatus(id, status string) {
	logger, config := setup()

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	if err := db.SetStatus(context.Background(), id, status); err != nil {
		logger.Fatal("setting the status", zap.String("job_id", id), zap.Error(err), hint(err))
	}
	logger.Info("status updated", zap.String("job_id", id), zap.String("status", status))
}

func exclude(jobIDs []string) {
	ctx := context.Background()
	logger, config := setup()

	if config.Filters == nil || config.Filters.ExcludeFile == "" {
		logger.Fatal("exclude file is not configured", zap.String("hint", "set filters.exclude-file"))
	}
	path := config.Filters.ExcludeFile

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	appended, err := appendExcluded(ctx, db, path, jobIDs, logger)
	if err != nil {
		logger.Fatal("updating the exclude file", zap.Error(err), hint(err))
	}
	if len(appended) > 0 {
		logger.Info("appended to exclude file", zap.String("filename", path), zap.Strings("jobs", appended))
	}
}

// appendExcluded adds the stored jobs among jobIDs to the exclude file at
// path and returns the ids it wrote. Unknown ids are logged and skipped.
func appendExcluded(ctx context.Context, db *store.Store, path string, jobIDs []string, logger *zap.Logger) ([]string, error) {
	records, err := db.List(ctx, store.Filter{IDs: jobIDs})
	if err != nil {
		return nil, err
	}
	if len(records) < len(jobIDs) {
		logger.Warn("some jobs are not in the database", zap.Int("requested", len(jobIDs)), zap.Int("found", len(records)))
	}
	if len(records) == 0 {
		return nil, nil
	}

	excluded, err := filtering.LoadExcludedJobs(path)
	if err != nil {
		return nil, err
	}
	excluded.Append(records)
	if err := excluded.ToFile(path); err != nil {
		return nil, err
	}
	return ids(records), nil
}
