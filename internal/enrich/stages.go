// Package enrich fills the derived columns of a posting through LLM stages.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/ai/llmjson"
	"github.com/spigell/joe-enricher/internal/dispatch"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/utils"
)

const (
	detailsDescriptionLimit  = 6000
	classifyDescriptionLimit = 500
	snapshotRequirementLimit = 1500
	snapshotDescriptionLimit = 2000
	complexDeadlineLength    = 50
)

var errNoResponse = errors.New("no usable llm response")

// Stages runs the enrichment prompts for a batch of records. Every stage
// returns a map holding each submitted job id; a nil value means the stage
// produced nothing usable for that job.
type Stages struct {
	caller ai.Caller
	pool   *dispatch.Pool
	logger *zap.Logger
}

// NewStages wires the stages to a gateway and the shared pool.
func NewStages(caller ai.Caller, pool *dispatch.Pool, logger *zap.Logger) *Stages {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = dispatch.NewPool(dispatch.WithLogger(logger))
	}
	return &Stages{caller: caller, pool: pool, logger: logger}
}

// Details is what the details stage extracts from a description.
type Details struct {
	PositionType                string `json:"position_type"`
	Field                       string `json:"field"`
	Level                       string `json:"level"`
	Requirements                string `json:"requirements"`
	ResearchAreas               string `json:"research_areas"`
	TeachingLoad                string `json:"teaching_load"`
	LocationPreference          string `json:"location_preference"`
	ExtractedDeadline           string `json:"extracted_deadline"`
	RequiresSeparateApplication *bool  `json:"requires_separate_application"`
	ApplicationPortalURL        string `json:"application_portal_url"`
	Country                     string `json:"country"`
	ApplicationMaterials        string `json:"application_materials"`
	ReferencesSeparateEmail     *bool  `json:"references_separate_email"`
}

var detailsSchema = llmjson.MustCompile("details", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"position_type":                 llmjson.NullableString(),
		"field":                         llmjson.StringOrList(),
		"level":                         llmjson.StringOrList(),
		"requirements":                  llmjson.StringOrList(),
		"research_areas":                llmjson.StringOrList(),
		"teaching_load":                 llmjson.StringOrList(),
		"location_preference":           llmjson.StringOrList(),
		"extracted_deadline":            llmjson.NullableString(),
		"requires_separate_application": llmjson.NullableBool(),
		"application_portal_url":        llmjson.NullableString(),
		"country":                       llmjson.NullableString(),
		"application_materials":         llmjson.StringOrList(),
		"references_separate_email":     llmjson.NullableBool(),
	},
})

// ExtractDetails asks for the structured details of every record with a
// description.
func (s *Stages) ExtractDetails(ctx context.Context, records []*job.Record) map[string]*Details {
	tasks := make([]dispatch.Task[Details], 0, len(records))
	for _, rec := range records {
		description := strings.TrimSpace(rec.Description)
		if description == "" {
			continue
		}
		req := ai.Request{
			System: detailsSystemPrompt,
			Prompt: fmt.Sprintf(detailsUserPrompt, utils.TruncateWords(description, detailsDescriptionLimit)),
			JSON:   true,
		}
		tasks = append(tasks, dispatch.Task[Details]{
			Key: rec.JobID,
			Run: func(ctx context.Context) (Details, error) {
				return s.details(ctx, req)
			},
		})
	}
	return dispatch.Execute(ctx, s.pool, "details", tasks)
}

func (s *Stages) details(ctx context.Context, req ai.Request) (Details, error) {
	var out Details
	obj, err := s.decode(ctx, req, detailsSchema)
	if err != nil {
		return out, err
	}

	// Booleans arrive as true, "yes" or 1; anything else counts as missing.
	for _, key := range []string{"requires_separate_application", "references_separate_email"} {
		if b, ok := llmjson.Bool(obj[key]); ok {
			obj[key] = b
		} else {
			delete(obj, key)
		}
	}

	if err := llmjson.DecodeInto(obj, &out); err != nil {
		return out, err
	}
	if !job.IsISODate(out.ExtractedDeadline) {
		out.ExtractedDeadline = ""
	}
	return out, nil
}

// IsComplexDeadline reports whether deadline text needs the LLM rather than
// the local date layouts.
func IsComplexDeadline(text string) bool {
	if len(text) > complexDeadlineLength {
		return true
	}
	lower := strings.ToLower(text)
	for _, word := range []string{"until", "by", "before", "extended"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// ParseDeadlines normalizes the deadline column to YYYY-MM-DD. Simple text is
// parsed locally; complex text goes to the LLM first and falls back to the
// local layouts. Jobs without a usable date map to nil.
func (s *Stages) ParseDeadlines(ctx context.Context, records []*job.Record) map[string]*string {
	out := make(map[string]*string)
	tasks := make([]dispatch.Task[string], 0)
	for _, rec := range records {
		text := strings.TrimSpace(rec.Deadline)
		if text == "" {
			continue
		}
		if !IsComplexDeadline(text) {
			out[rec.JobID] = localDeadline(text)
			continue
		}
		tasks = append(tasks, dispatch.Task[string]{
			Key: rec.JobID,
			Run: func(ctx context.Context) (string, error) {
				return s.deadline(ctx, text)
			},
		})
	}

	for id, date := range dispatch.Execute(ctx, s.pool, "deadline", tasks) {
		if date == nil {
			date = localDeadline(deadlineText(records, id))
		}
		out[id] = date
	}
	return out
}

func (s *Stages) deadline(ctx context.Context, text string) (string, error) {
	raw, ok := s.caller.Call(ctx, ai.Request{
		System: deadlineSystemPrompt,
		Prompt: fmt.Sprintf(deadlineUserPrompt, text),
	})
	if !ok {
		return "", errNoResponse
	}
	date := strings.Trim(llmjson.Extract(raw), "\"'` \n")
	if !job.IsISODate(date) {
		return "", errors.Newf("deadline answer %q is not a calendar date", utils.TruncateForLog(date, 40))
	}
	return date, nil
}

func localDeadline(text string) *string {
	date, ok := job.ParseLocalDate(text)
	if !ok {
		return nil
	}
	return &date
}

func deadlineText(records []*job.Record, id string) string {
	for _, rec := range records {
		if rec.JobID == id {
			return strings.TrimSpace(rec.Deadline)
		}
	}
	return ""
}

// Classification is the coarse position classification.
type Classification struct {
	Level      string `json:"level"`
	Type       string `json:"type"`
	FieldFocus string `json:"field_focus"`
}

var classifySchema = llmjson.MustCompile("classification", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"level":       llmjson.StringOrList(),
		"type":        llmjson.NullableString(),
		"field_focus": llmjson.StringOrList(),
	},
})

// ClassifyPosition classifies every record that has both a title and a
// description. Levels come back normalized.
func (s *Stages) ClassifyPosition(ctx context.Context, records []*job.Record) map[string]*Classification {
	tasks := make([]dispatch.Task[Classification], 0, len(records))
	for _, rec := range records {
		title := strings.TrimSpace(rec.Title)
		description := strings.TrimSpace(rec.Description)
		if title == "" || description == "" {
			continue
		}
		req := ai.Request{
			System: classifySystemPrompt,
			Prompt: fmt.Sprintf(classifyUserPrompt, title, utils.FirstRunes(description, classifyDescriptionLimit)),
			JSON:   true,
		}
		tasks = append(tasks, dispatch.Task[Classification]{
			Key: rec.JobID,
			Run: func(ctx context.Context) (Classification, error) {
				var out Classification
				obj, err := s.decode(ctx, req, classifySchema)
				if err != nil {
					return out, err
				}
				if err := llmjson.DecodeInto(obj, &out); err != nil {
					return out, err
				}
				if strings.TrimSpace(out.Level) != "" {
					out.Level = JoinLevels(out.Level, title, description)
				}
				return out, nil
			},
		})
	}
	return dispatch.Execute(ctx, s.pool, "classify", tasks)
}

// Position tracks a posting can be assigned to.
const (
	TrackJuniorTenure  = "junior tenure-track"
	TrackSeniorTenure  = "senior tenure-track"
	TrackTeaching      = "teaching"
	TrackIndustry      = "industry"
	TrackNonTenure     = "non-tenure track"
	TrackOtherAcademia = "other academia"
)

// Tracks is the closed set of position tracks.
var Tracks = []string{
	TrackJuniorTenure,
	TrackSeniorTenure,
	TrackTeaching,
	TrackIndustry,
	TrackNonTenure,
	TrackOtherAcademia,
}

// Track is the model's track answer. Label is empty when the answer was not
// one of Tracks; Rejected then holds what the model said.
type Track struct {
	Label     string `json:"track_label"`
	Reasoning string `json:"reasoning"`
	Rejected  string `json:"-"`
}

var trackSchema = llmjson.MustCompile("track", map[string]any{
	"type":     "object",
	"required": []any{"track_label"},
	"properties": map[string]any{
		"track_label": map[string]any{"type": "string"},
		"reasoning":   llmjson.NullableString(),
	},
})

// AssignTrack assigns every record to one track. Labels outside the set,
// including case variants, are rejected rather than coerced. A record maps to
// nil only when the call itself failed.
func (s *Stages) AssignTrack(ctx context.Context, records []*job.Record) map[string]*Track {
	tasks := make([]dispatch.Task[Track], 0, len(records))
	for _, rec := range records {
		req := ai.Request{System: trackSystemPrompt, Prompt: Snapshot(rec), JSON: true}
		tasks = append(tasks, dispatch.Task[Track]{
			Key: rec.JobID,
			Run: func(ctx context.Context) (Track, error) {
				var out Track
				obj, err := s.decode(ctx, req, trackSchema)
				if err != nil {
					return out, err
				}
				if err := llmjson.DecodeInto(obj, &out); err != nil {
					return out, err
				}
				if !ValidTrack(out.Label) {
					s.logger.Warn("rejecting track label", zap.String("job_id", rec.JobID), zap.String("label", out.Label))
					return Track{Rejected: out.Label}, nil
				}
				return out, nil
			},
		})
	}
	return dispatch.Execute(ctx, s.pool, "track", tasks)
}

// ValidTrack reports whether label is exactly one of Tracks.
func ValidTrack(label string) bool {
	for _, track := range Tracks {
		if label == track {
			return true
		}
	}
	return false
}

// Snapshot renders the job summary used by the track prompt.
func Snapshot(rec *job.Record) string {
	requirements := utils.TruncateWords(rec.Requirements, snapshotRequirementLimit)
	if requirements == "" {
		requirements = "Not specified."
	}
	description := utils.TruncateWords(rec.Description, snapshotDescriptionLimit)
	if description == "" {
		description = "Not specified."
	}

	lines := []string{
		"Title: " + firstNonEmpty(rec.Title, "Unknown"),
		"Institution: " + firstNonEmpty(rec.Institution, "Unknown"),
		"Position Type: " + firstNonEmpty(rec.PositionType, rec.Level, "N/A"),
		"Field: " + firstNonEmpty(rec.Field, "N/A"),
		"Location: " + firstNonEmpty(rec.Location, rec.Country, "N/A"),
		"Status: " + firstNonEmpty(rec.ApplicationStatus, "N/A"),
		"Requirements:\n" + requirements,
		"Description:\n" + description,
	}
	return strings.Join(lines, "\n")
}

func (s *Stages) decode(ctx context.Context, req ai.Request, schema *llmjson.Schema) (map[string]any, error) {
	if s.caller == nil {
		return nil, errNoResponse
	}
	raw, ok := s.caller.Call(ctx, req)
	if !ok {
		return nil, errNoResponse
	}
	obj, err := llmjson.Decode(raw, schema)
	if err != nil {
		s.logger.Debug("discarding llm response",
			zap.Error(err),
			zap.String("response", utils.TruncateForLog(raw, 200)),
		)
		return nil, err
	}
	return obj, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
