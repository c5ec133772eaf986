package cmd

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/filtering"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/store"
)

func TestIDs(t *testing.T) {
	got := ids([]*job.Record{{JobID: "7"}, {JobID: "3"}})
	if strings.Join(got, ",") != "7,3" {
		t.Fatalf("unexpected ids: %v", got)
	}
	if got := ids(nil); len(got) != 0 {
		t.Fatalf("expected no ids, got %v", got)
	}
}

func TestAppendExcluded(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, rec := range []*job.Record{
		{JobID: "1", Title: "Assistant Professor", Institution: "State University"},
		{JobID: "2", Title: "Lecturer", Institution: "LSE"},
	} {
		if _, err := db.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.JobID, err)
		}
	}

	path := filepath.Join(t.TempDir(), "exclude.yaml")
	appended, err := appendExcluded(ctx, db, path, []string{"2", "1", "missing"}, zap.NewNop())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	sort.Strings(appended)
	if strings.Join(appended, ",") != "1,2" {
		t.Fatalf("expected stored jobs only, got %v", appended)
	}

	if _, err := appendExcluded(ctx, db, path, []string{"1"}, zap.NewNop()); err != nil {
		t.Fatalf("second append: %v", err)
	}

	excluded, err := filtering.LoadExcludedJobs(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := excluded.IDs()
	sort.Strings(got)
	if strings.Join(got, ",") != "1,2" {
		t.Fatalf("expected each job once in the exclude file, got %v", got)
	}
}

func TestAppendExcludedUnknownJobs(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	path := filepath.Join(t.TempDir(), "exclude.yaml")
	appended, err := appendExcluded(context.Background(), db, path, []string{"404"}, zap.NewNop())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(appended) != 0 {
		t.Fatalf("expected nothing appended, got %v", appended)
	}
}
