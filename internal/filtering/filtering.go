// Package filtering narrows the stored postings down to the ones a run
// should touch. Each step logs how many postings it dropped.
package filtering

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

// Filter represents a single filtering step applied to postings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, jobs *Jobs) (*Jobs, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains the selection settings consumed by the filters.
type Config struct {
	IDs                 []string
	ExcludeInstitutions []string
	ExcludeStatuses     []string
	ExcludeFile         string
	Limit               int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Jobs is an ordered set of postings.
type Jobs struct {
	Items []*job.Record
}

// NewJobs wraps a copy of records so filtering never reorders the caller's slice.
func NewJobs(records []*job.Record) *Jobs {
	return &Jobs{Items: append([]*job.Record(nil), records...)}
}

// Len returns the number of postings.
func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

// Exclude drops every posting matching drop and returns the dropped ids.
func (j *Jobs) Exclude(drop func(*job.Record) bool) []string {
	kept := j.Items[:0]
	var excluded []string
	for _, rec := range j.Items {
		if drop(rec) {
			excluded = append(excluded, rec.JobID)
			continue
		}
		kept = append(kept, rec)
	}
	j.Items = kept
	return excluded
}

// IDs returns the posting ids in order.
func (j *Jobs) IDs() []string {
	ids := make([]string, 0, j.Len())
	for _, rec := range j.Items {
		ids = append(ids, rec.JobID)
	}
	return ids
}

// Default returns the standard pipeline in the order it runs.
func Default() []Filter {
	return []Filter{
		NewIDs(),
		NewStatuses(false),
		NewInstitutions(),
		NewExcludeFile(),
		NewLimit(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates every enabled filter, then applies them sequentially.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, jobs *Jobs) (*Jobs, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, errors.Wrap(err, step.Name())
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, jobs)
		if err != nil {
			return nil, errors.Wrap(err, step.Name())
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		jobs = next
	}

	return jobs, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
