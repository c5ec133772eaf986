package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/store"
)

const topMatches = 5

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print totals by status, the average fit score and the top matches",
	Run: func(_ *cobra.Command, _ []string) {
		summary()
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func summary() {
	ctx := context.Background()
	logger, config := setup()

	db, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), hint(err))
	}
	defer db.Close()

	counts, err := db.StatusCounts(ctx)
	if err != nil {
		logger.Fatal("counting jobs", zap.Error(err))
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		pterm.Info.Println("No jobs in database")
		return
	}

	avg, scored, err := db.AverageFitScore(ctx)
	if err != nil {
		logger.Fatal("averaging fit scores", zap.Error(err))
	}

	zero := 0.0
	top, err := db.List(ctx, store.Filter{OrderBy: store.OrderFitScore, MinFitScore: &zero, Limit: topMatches})
	if err != nil {
		logger.Fatal("listing top matches", zap.Error(err))
	}

	pterm.DefaultSection.Println("Database Summary")
	if err := pterm.DefaultTable.WithHasHeader().WithData(statusTable(counts, total)).Render(); err != nil {
		logger.Fatal("rendering status table", zap.Error(err))
	}

	if scored == 0 {
		pterm.Info.Println("No scored jobs yet")
		return
	}
	pterm.Info.Printfln("Average fit score: %.2f over %d scored jobs", avg, scored)

	pterm.DefaultSection.Println(fmt.Sprintf("Top %d matches", len(top)))
	if err := pterm.DefaultTable.WithHasHeader().WithData(topTable(top)).Render(); err != nil {
		logger.Fatal("rendering top matches", zap.Error(err))
	}
}

// statusTable lists every known status, then any unknown ones found in the database.
func statusTable(counts map[string]int, total int) pterm.TableData {
	data := pterm.TableData{{"Status", "Jobs"}}
	seen := make(map[string]bool, len(job.Statuses))
	for _, status := range job.Statuses {
		seen[status] = true
		data = append(data, []string{status, strconv.Itoa(counts[status])})
	}
	var extra []string
	for status := range counts {
		if !seen[status] {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	for _, status := range extra {
		data = append(data, []string{status, strconv.Itoa(counts[status])})
	}
	return append(data, []string{"total", strconv.Itoa(total)})
}

func topTable(records []*job.Record) pterm.TableData {
	data := pterm.TableData{{"#", "Title", "Institution", "Fit", "Difficulty", "Deadline"}}
	for i, rec := range records {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			orUnknown(rec.Title),
			orUnknown(rec.Institution),
			score(rec.FitScore),
			score(rec.DifficultyScore),
			rec.Deadline,
		})
	}
	return data
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
