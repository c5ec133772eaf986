package staleness

import (
	"testing"

	"github.com/spigell/joe-enricher/internal/job"
)

const hash = "3f1a"

func ptr[T any](v T) *T { return &v }

func enriched() *job.Record {
	return &job.Record{
		JobID:                       "1",
		ExtractedDeadline:           "2025-11-15",
		ApplicationPortalURL:        "https://jobs.example.edu",
		RequiresSeparateApplication: ptr(false),
		Country:                     "United States",
		ApplicationMaterials:        "CV",
		ReferencesSeparateEmail:     ptr(false),
		Field:                       "Labor",
		Level:                       "Assistant",
		PositionType:                "Tenure-track",
		PositionTrack:               "junior tenure-track",
	}
}

func scored() *job.Record {
	rec := enriched()
	rec.FitScore = ptr(70.0)
	rec.DifficultyScore = ptr(20.0)
	rec.FitPortfolioHash = hash
	rec.FitUpdatedAt = "2025-10-02T10:00:00Z"
	rec.LastUpdated = "2025-10-01 09:00:00"
	return rec
}

func TestNeedsEnrichmentPopulated(t *testing.T) {
	if NeedsEnrichment(enriched()) {
		t.Fatalf("expected fully populated record not to need enrichment")
	}
}

func TestNeedsEnrichmentAnyMissingField(t *testing.T) {
	for _, field := range job.EnrichmentFields {
		t.Run(string(field), func(t *testing.T) {
			rec := enriched()
			switch field {
			case job.FieldRequiresSeparateApplication:
				rec.RequiresSeparateApplication = nil
			case job.FieldReferencesSeparateEmail:
				rec.ReferencesSeparateEmail = nil
			default:
				if err := rec.Apply(job.Patch{field: "   "}); err != nil {
					t.Fatalf("apply: %v", err)
				}
			}
			if !NeedsEnrichment(rec) {
				t.Fatalf("expected missing %s to require enrichment", field)
			}
		})
	}
}

func TestNeedsRescore(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*job.Record)
		want   bool
	}{
		{name: "fresh", mutate: func(*job.Record) {}, want: false},
		{name: "equal timestamps", mutate: func(r *job.Record) { r.FitUpdatedAt = "2025-10-01T09:00:00Z" }, want: false},
		{name: "missing fit score", mutate: func(r *job.Record) { r.FitScore = nil }, want: true},
		{name: "missing difficulty", mutate: func(r *job.Record) { r.DifficultyScore = nil }, want: true},
		{name: "missing track", mutate: func(r *job.Record) { r.PositionTrack = " " }, want: true},
		{name: "portfolio changed", mutate: func(r *job.Record) { r.FitPortfolioHash = "other" }, want: true},
		{name: "content changed after scoring", mutate: func(r *job.Record) { r.LastUpdated = "2025-10-03 00:00:00" }, want: true},
		{name: "unparseable fit time", mutate: func(r *job.Record) { r.FitUpdatedAt = "yesterday" }, want: true},
		{name: "unparseable last updated", mutate: func(r *job.Record) { r.LastUpdated = "" }, want: true},
		{name: "microsecond timestamps", mutate: func(r *job.Record) { r.FitUpdatedAt = "2025-10-01T09:00:00.500000" }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := scored()
			tt.mutate(rec)
			if got := NeedsRescore(rec, hash); got != tt.want {
				t.Fatalf("NeedsRescore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, input := range []string{
		"2025-10-01T09:00:00Z",
		"2025-10-01T09:00:00.123456789+02:00",
		"2025-10-01T09:00:00",
		"2025-10-01 09:00:00",
	} {
		if _, ok := ParseTimestamp(input); !ok {
			t.Fatalf("expected %q to parse", input)
		}
	}
	if _, ok := ParseTimestamp("10/01/2025"); ok {
		t.Fatalf("expected date-only US format to be rejected")
	}
}
