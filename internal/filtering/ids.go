package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

type idsFilter struct {
	ids      map[string]struct{}
	disabled bool
	reason   string
}

// NewIDs creates a filter that keeps only postings explicitly asked for.
func NewIDs() Filter {
	return &idsFilter{}
}

func (f *idsFilter) Name() string { return "ids" }

func (f *idsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *idsFilter) IsEnabled() bool { return !f.disabled }

func (f *idsFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg == nil {
		return nil
	}
	for _, id := range cfg.IDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if f.ids == nil {
			f.ids = make(map[string]struct{})
		}
		f.ids[id] = struct{}{}
	}
	return nil
}

func (f *idsFilter) Apply(_ context.Context, deps Deps, jobs *Jobs) (*Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.ids) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded := jobs.Exclude(func(rec *job.Record) bool {
		_, ok := f.ids[rec.JobID]
		return !ok
	})
	if jobs.Len() < len(f.ids) {
		deps.Logger.Warn("some requested jobs are not in the database",
			zap.Int("requested", len(f.ids)),
			zap.Int("found", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *idsFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		ids := make([]string, 0, len(f.ids))
		for id := range f.ids {
			ids = append(ids, id)
		}
		details["ids"] = strings.Join(ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
