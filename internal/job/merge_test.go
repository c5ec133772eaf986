package job

import (
	"strings"
	"testing"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func populated() *Record {
	return &Record{
		JobID:                       "1001",
		Title:                       "Assistant Professor of Economics",
		Requirements:                "PhD in economics",
		ExtractedDeadline:           "2025-11-15",
		ApplicationPortalURL:        "https://jobs.example.edu/apply",
		RequiresSeparateApplication: boolPtr(false),
		Country:                     "United States",
		ApplicationMaterials:        "CV, Cover Letter",
		ReferencesSeparateEmail:     boolPtr(false),
		Field:                       "Public Economics",
		Level:                       "Assistant",
		PositionType:                "Tenure-track",
		PositionTrack:               "junior tenure-track",
		ApplicationStatus:           StatusNew,
	}
}

func TestMergeFillsEmptyFields(t *testing.T) {
	existing := &Record{JobID: "1"}
	patch := Merge(existing, Patch{
		FieldCountry:                     "Canada",
		FieldRequiresSeparateApplication: false,
		FieldApplicationMaterials:        []string{"CV", "Job Market Paper"},
	}, false)

	if patch[FieldCountry] != "Canada" {
		t.Fatalf("expected country to be filled, got %v", patch[FieldCountry])
	}
	if patch[FieldRequiresSeparateApplication] != false {
		t.Fatalf("expected false to be adopted as a value, got %v", patch[FieldRequiresSeparateApplication])
	}
	if patch[FieldApplicationMaterials] != "CV, Job Market Paper" {
		t.Fatalf("unexpected materials: %v", patch[FieldApplicationMaterials])
	}
}

func TestMergeKeepsPopulatedFields(t *testing.T) {
	patch := Merge(populated(), Patch{FieldCountry: "Canada", FieldLevel: "Associate"}, false)
	if len(patch) != 0 {
		t.Fatalf("expected populated fields to be kept, got %v", patch)
	}
}

func TestMergeAccumulatesRequirements(t *testing.T) {
	existing := populated()

	patch := Merge(existing, Patch{FieldRequirements: "Strong publication record"}, false)
	merged, _ := patch[FieldRequirements].(string)
	if !strings.Contains(merged, "PhD in economics") || !strings.Contains(merged, "Strong publication record") {
		t.Fatalf("expected both requirements to be kept, got %q", merged)
	}

	duplicate := Merge(existing, Patch{FieldRequirements: "PhD in economics"}, false)
	if _, ok := duplicate[FieldRequirements]; ok {
		t.Fatalf("expected duplicate requirements to leave the value unchanged, got %v", duplicate)
	}
}

func TestMergeAccumulatesListItems(t *testing.T) {
	patch := Merge(populated(), Patch{FieldApplicationMaterials: []string{"cv", "Research Statement"}}, false)
	if patch[FieldApplicationMaterials] != "CV, Cover Letter, Research Statement" {
		t.Fatalf("unexpected materials: %v", patch[FieldApplicationMaterials])
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	existing := populated()
	update := Patch{
		FieldRequirements:            "PhD in economics",
		FieldExtractedDeadline:       "2025-12-01",
		FieldApplicationMaterials:    "CV",
		FieldCountry:                 "United States",
		FieldReferencesSeparateEmail: true,
		FieldPositionTrack:           "teaching",
	}

	first := Merge(existing, update, false)
	if len(first) != 0 {
		t.Fatalf("expected no changes on populated record, got %v", first)
	}

	fresh := &Record{JobID: "2"}
	patch := Merge(fresh, update, false)
	if err := fresh.Apply(patch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if again := Merge(fresh, update, false); len(again) != 0 {
		t.Fatalf("expected second merge to be empty, got %v", again)
	}
}

func TestMergeForceReplacesEnrichment(t *testing.T) {
	patch := Merge(populated(), Patch{
		FieldCountry:           "Canada",
		FieldRequirements:      "Teaching experience",
		FieldApplicationStatus: StatusExpired,
	}, true)

	if patch[FieldCountry] != "Canada" {
		t.Fatalf("expected forced country, got %v", patch[FieldCountry])
	}
	if patch[FieldRequirements] != "Teaching experience" {
		t.Fatalf("expected forced requirements replacement, got %v", patch[FieldRequirements])
	}
	if patch[FieldApplicationStatus] != StatusExpired {
		t.Fatalf("expected default status to accept automated change, got %v", patch[FieldApplicationStatus])
	}
}

func TestMergeNeverOverwritesUserStatus(t *testing.T) {
	existing := populated()
	existing.ApplicationStatus = StatusApplied

	for _, force := range []bool{false, true} {
		patch := Merge(existing, Patch{FieldApplicationStatus: StatusNew}, force)
		if _, ok := patch[FieldApplicationStatus]; ok {
			t.Fatalf("force=%v: expected user status to be preserved, got %v", force, patch)
		}
	}
}

func TestMergeSkipsEmptyAndUnknown(t *testing.T) {
	patch := Merge(populated(), Patch{
		FieldCountry:     "   ",
		Field("unknown"): "value",
		FieldFitScore:    nil,
		FieldTitle:       "Assistant Professor of Economics",
	}, true)
	if len(patch) != 0 {
		t.Fatalf("expected empty patch, got %v", patch)
	}
}

func TestMergeOverwritesScores(t *testing.T) {
	existing := populated()
	existing.FitScore = floatPtr(40)

	patch := Merge(existing, Patch{FieldFitScore: 82.5}, false)
	if patch[FieldFitScore] != 82.5 {
		t.Fatalf("expected score overwrite, got %v", patch[FieldFitScore])
	}
}

func TestApplyPatch(t *testing.T) {
	rec := &Record{JobID: "1"}
	err := rec.Apply(Patch{
		FieldFitScore:                82.5,
		FieldReferencesSeparateEmail: true,
		FieldCountry:                 "Germany",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.FitScore == nil || *rec.FitScore != 82.5 {
		t.Fatalf("unexpected fit score: %v", rec.FitScore)
	}
	if rec.ReferencesSeparateEmail == nil || !*rec.ReferencesSeparateEmail {
		t.Fatalf("unexpected references flag: %v", rec.ReferencesSeparateEmail)
	}
	if rec.Country != "Germany" {
		t.Fatalf("unexpected country: %q", rec.Country)
	}

	if err := rec.Apply(Patch{Field("bogus"): "x"}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestPatchTouches(t *testing.T) {
	if !(Patch{FieldCountry: "x"}).Touches(ClassSource, ClassEnrichment) {
		t.Fatalf("expected enrichment patch to touch content")
	}
	if (Patch{FieldFitScore: 1.0, FieldApplicationStatus: "applied"}).Touches(ClassSource, ClassEnrichment) {
		t.Fatalf("expected scoring and status patch not to touch content")
	}
}
