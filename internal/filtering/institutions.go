package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

type institutionsFilter struct {
	institutions []string
}

// NewInstitutions creates a filter that removes postings of institutions
// configured in the config. Names match case-insensitively as substrings.
func NewInstitutions() Filter {
	return &institutionsFilter{}
}

func (f *institutionsFilter) Name() string { return "institutions" }

func (f *institutionsFilter) Disable(string) {}

func (f *institutionsFilter) IsEnabled() bool { return true }

func (f *institutionsFilter) Validate(cfg *Config) error {
	f.institutions = nil
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.ExcludeInstitutions {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			f.institutions = append(f.institutions, name)
		}
	}
	return nil
}

func (f *institutionsFilter) Apply(_ context.Context, deps Deps, jobs *Jobs) (*Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.institutions) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded := jobs.Exclude(func(rec *job.Record) bool {
		institution := strings.ToLower(rec.Institution)
		for _, name := range f.institutions {
			if strings.Contains(institution, name) {
				return true
			}
		}
		return false
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding jobs by institutions",
			zap.Strings("excluded_institutions", f.institutions),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *institutionsFilter) Status() Status {
	details := map[string]string{}
	if len(f.institutions) > 0 {
		details["institutions"] = strings.Join(f.institutions, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
