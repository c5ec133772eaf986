package filtering

import (
	"context"
	"strconv"
)

type limitFilter struct {
	limit int
}

// NewLimit creates a filter that keeps at most the configured number of
// postings, in their current order.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Disable(string) {}

func (f *limitFilter) IsEnabled() bool { return true }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg != nil && cfg.Limit > 0 {
		f.limit = cfg.Limit
	}
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, jobs *Jobs) (*Jobs, Step, error) {
	initial := jobs.Len()
	if f.limit == 0 || initial <= f.limit {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}
	jobs.Items = jobs.Items[:f.limit]
	return jobs, Step{Initial: initial, Dropped: initial - f.limit, Left: f.limit}, nil
}

func (f *limitFilter) Status() Status {
	details := map[string]string{}
	if f.limit > 0 {
		details["limit"] = strconv.Itoa(f.limit)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
