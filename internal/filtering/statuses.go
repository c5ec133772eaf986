package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

type statusesFilter struct {
	ignore   bool
	statuses map[string]struct{}
}

// NewStatuses creates a filter that removes postings whose application
// status is configured as excluded, e.g. ones already applied to.
// ignore keeps every posting regardless of the configuration.
func NewStatuses(ignore bool) Filter {
	return &statusesFilter{ignore: ignore}
}

func (f *statusesFilter) Name() string { return "statuses" }

func (f *statusesFilter) Disable(string) { f.ignore = true }

func (f *statusesFilter) IsEnabled() bool { return true }

func (f *statusesFilter) Validate(cfg *Config) error {
	f.statuses = map[string]struct{}{}
	if cfg == nil {
		return nil
	}
	for _, status := range cfg.ExcludeStatuses {
		status = strings.ToLower(strings.TrimSpace(status))
		if !job.ValidStatus(status) {
			return errors.WithHintf(errors.Newf("unknown application status %q", status),
				"valid statuses: %s", strings.Join(job.Statuses, ", "))
		}
		f.statuses[status] = struct{}{}
	}
	return nil
}

func (f *statusesFilter) Apply(_ context.Context, deps Deps, jobs *Jobs) (*Jobs, Step, error) {
	initial := jobs.Len()
	if f.ignore {
		deps.Logger.Info("ignoring excluded statuses", zap.String("reason", "all statuses requested"))
		return jobs, Step{Initial: initial, Left: initial}, nil
	}
	if len(f.statuses) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded := jobs.Exclude(func(rec *job.Record) bool {
		_, ok := f.statuses[strings.ToLower(rec.ApplicationStatus)]
		return ok
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding jobs by application status",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *statusesFilter) Status() Status {
	statuses := make([]string, 0, len(f.statuses))
	for _, s := range job.Statuses {
		if _, ok := f.statuses[s]; ok {
			statuses = append(statuses, s)
		}
	}
	details := map[string]string{
		"exclude_statuses": strings.Join(statuses, ","),
		"ignore":           strconv.FormatBool(f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
