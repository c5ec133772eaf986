package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/enrich"
	"github.com/spigell/joe-enricher/internal/filtering"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/matcher"
	"github.com/spigell/joe-enricher/internal/portfolio"
	"github.com/spigell/joe-enricher/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var forcePrompt = promptui.Select{
	Label: "Force rewrites every enrichment field and rescores all selected jobs. Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich stored jobs with the LLM and score them against the portfolio",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("skip-process", false, "do not run the enrichment stages")
	runCmd.Flags().Bool("skip-match", false, "do not score jobs against the portfolio")
	runCmd.Flags().BoolP("force", "f", false, "re-enrich and rescore jobs even if they are up to date")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation when --force is set")
	runCmd.Flags().Bool("all-statuses", false, "ignore filters.exclude-statuses")
	runCmd.Flags().Int("limit", 0, "process at most this many jobs")
	runCmd.Flags().StringSlice("id", nil, "process only the given job ids")
	runCmd.Flags().StringP("exclude-file", "e", "", "a file with jobs to exclude")

	viper.BindPFlag("filters.exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	logger.Info("starting the joe-enricher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")
	if force && !yes {
		_, answer, err := forcePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	records, err := selectJobs(ctx, cmd, config, db, logger)
	if err != nil {
		logger.Fatal("selecting jobs", zap.Error(err), hint(err))
	}
	if len(records) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	gateway := newGateway(ctx, config, logger)
	pool := newPool(config, logger)

	if skip, _ := cmd.Flags().GetBool("skip-process"); !skip {
		stages := enrich.NewStages(gateway, pool, logger)
		processor := enrich.NewProcessor(stages, db, logger, enrich.WithBatchSize(config.BatchSize))
		counts := processor.Run(ctx, records, force)
		logger.Info("enrichment finished",
			zap.Int("processed", counts.Processed),
			zap.Int("errors", counts.Errors),
			zap.Int("skipped", counts.Skipped),
		)
	}

	if skip, _ := cmd.Flags().GetBool("skip-match"); skip {
		return
	}

	p, err := portfolio.Load(config.Portfolio, logger)
	if err != nil {
		logger.Warn("skipping matching", zap.Error(err), hint(err))
		return
	}

	prompts, err := matcher.LoadPrompts(config.PromptsFile)
	if err != nil {
		logger.Fatal("loading prompts", zap.Error(err), hint(err))
	}

	// Scores depend on the enrichment just written, so read the jobs again.
	records, err = db.List(ctx, store.Filter{IDs: ids(records)})
	if err != nil {
		logger.Fatal("reloading jobs", zap.Error(err))
	}

	scorer := matcher.NewScorer(
		matcher.NewEvaluator(gateway, prompts, logger),
		pool,
		db,
		logger,
		matcher.WithFocalAreas(config.ResearchFocalAreas),
		matcher.WithBatchSize(config.BatchSize),
	)
	counts := scorer.Run(ctx, records, p, force)
	logger.Info("matching finished",
		zap.Int("processed", counts.Processed),
		zap.Int("errors", counts.Errors),
		zap.Int("skipped", counts.Skipped),
		zap.Int("fallbacks", counts.Fallbacks),
	)
}

// selectJobs loads every stored job and narrows it with the filters.
func selectJobs(ctx context.Context, cmd *cobra.Command, config *Config, db *store.Store, logger *zap.Logger) ([]*job.Record, error) {
	all, err := db.List(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	logger.Info("loaded jobs", zap.Int("count", len(all)))

	cfg := &filtering.Config{}
	if config.Filters != nil {
		cfg.ExcludeInstitutions = config.Filters.ExcludeInstitutions
		cfg.ExcludeStatuses = config.Filters.ExcludeStatuses
		cfg.ExcludeFile = config.Filters.ExcludeFile
	}
	cfg.IDs, _ = cmd.Flags().GetStringSlice("id")
	cfg.Limit, _ = cmd.Flags().GetInt("limit")

	steps := filtering.Default()
	if ignore, _ := cmd.Flags().GetBool("all-statuses"); ignore {
		filtering.DisableByName(steps, "statuses", "all statuses requested")
	}

	selected, err := filtering.Run(ctx, cfg, filtering.Deps{Logger: logger}, steps, filtering.NewJobs(all))
	if err != nil {
		return nil, err
	}
	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}
	return selected.Items, nil
}

func ids(records []*job.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.JobID
	}
	return out
}

// redacted returns a copy of config safe to log.
func redacted(config *Config) *Config {
	c := *config
	if c.LLM != nil {
		llm := *c.LLM
		if llm.APIKey != "" {
			llm.APIKey = "***"
		}
		c.LLM = &llm
	}
	return &c
}
