package filtering

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/joe-enricher/internal/job"
)

// ExcludedJob is one entry of an exclude file. Title is informational.
type ExcludedJob struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title,omitempty"`
}

// ExcludedJobs is the exclude file document.
type ExcludedJobs struct {
	Items []ExcludedJob `yaml:"jobs"`
}

// IDs returns the excluded job ids.
func (e *ExcludedJobs) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		if id := strings.TrimSpace(item.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Append adds the given postings, skipping ids already listed.
func (e *ExcludedJobs) Append(records []*job.Record) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = struct{}{}
	}
	for _, rec := range records {
		if _, ok := seen[rec.JobID]; ok {
			continue
		}
		seen[rec.JobID] = struct{}{}
		e.Items = append(e.Items, ExcludedJob{ID: rec.JobID, Title: rec.Title})
	}
}

// ToFile writes the document to path.
func (e *ExcludedJobs) ToFile(path string) error {
	data, err := yaml.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode exclude file")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write exclude file %s", path)
}

// LoadExcludedJobs reads an exclude file. A missing or empty file excludes nothing.
func LoadExcludedJobs(path string) (*ExcludedJobs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ExcludedJobs{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read exclude file %s", path)
	}

	var excluded ExcludedJobs
	if len(strings.TrimSpace(string(data))) == 0 {
		return &excluded, nil
	}
	if err := yaml.Unmarshal(data, &excluded); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "parse exclude file %s", path),
			"expected a 'jobs' list of entries with an 'id' key",
		)
	}
	return &excluded, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes postings listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, jobs *Jobs) (*Jobs, Step, error) {
	initial := jobs.Len()
	if f.path == "" {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := LoadExcludedJobs(f.path)
	if err != nil {
		return jobs, Step{}, err
	}

	ids := make(map[string]struct{})
	for _, id := range excluded.IDs() {
		ids[id] = struct{}{}
	}
	removed := jobs.Exclude(func(rec *job.Record) bool {
		_, ok := ids[rec.JobID]
		return ok
	})
	if len(removed) > 0 {
		deps.Logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(removed), Left: jobs.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
