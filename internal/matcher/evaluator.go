// Package matcher scores postings against the candidate portfolio.
package matcher

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/ai/llmjson"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/utils"
)

const (
	portfolioLimit    = 2500
	descriptionLimit  = 2500
	requirementsLimit = 1500
)

// Alignment breaks the fit reasoning down by area.
type Alignment struct {
	Research string `json:"research"`
	Teaching string `json:"teaching"`
	Other    string `json:"other"`
}

// Assessment is one joint fit/difficulty answer. DifficultyScore is a
// feasibility score: 0 is impossible, 100 is guaranteed.
type Assessment struct {
	FitScore            float64   `json:"fit_score"`
	FitReasoning        string    `json:"fit_reasoning"`
	FitAlignment        Alignment `json:"fit_alignment"`
	DifficultyScore     float64   `json:"difficulty_score"`
	DifficultyReasoning string    `json:"difficulty_reasoning"`
}

// AlignmentJSON renders the alignment for storage.
func (a *Assessment) AlignmentJSON() string {
	if a.FitAlignment == (Alignment{}) {
		return ""
	}
	b, err := json.Marshal(a.FitAlignment)
	if err != nil {
		return ""
	}
	return string(b)
}

var assessmentSchema = llmjson.MustCompile("assessment", map[string]any{
	"type":     "object",
	"required": []any{"fit_score", "difficulty_score"},
	"properties": map[string]any{
		"fit_score":            llmjson.Number(),
		"fit_reasoning":        llmjson.StringOrList(),
		"fit_alignment":        map[string]any{"type": []any{"object", "string", "null"}},
		"difficulty_score":     llmjson.Number(),
		"difficulty_reasoning": llmjson.StringOrList(),
	},
})

// Evaluator runs the joint prompt for one job at a time.
type Evaluator struct {
	caller  ai.Caller
	prompts Prompts
	logger  *zap.Logger
}

// NewEvaluator builds an evaluator. Zero-valued prompts fall back to the
// embedded ones.
func NewEvaluator(caller ai.Caller, prompts Prompts, logger *zap.Logger) *Evaluator {
	defaults := DefaultPrompts()
	if strings.TrimSpace(prompts.System) == "" {
		prompts.System = defaults.System
	}
	if strings.TrimSpace(prompts.User) == "" {
		prompts.User = defaults.User
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{caller: caller, prompts: prompts, logger: logger}
}

// Evaluate asks for fit and difficulty of rec for the given portfolio text.
// It reports false when the call fails or the answer lacks numeric scores.
func (e *Evaluator) Evaluate(ctx context.Context, rec *job.Record, portfolioText string) (*Assessment, bool) {
	if e.caller == nil || rec == nil || strings.TrimSpace(portfolioText) == "" {
		return nil, false
	}

	raw, ok := e.caller.Call(ctx, ai.Request{
		System: e.prompts.System,
		Prompt: e.prompts.Render(promptVars(rec, portfolioText)),
		JSON:   true,
	})
	if !ok {
		return nil, false
	}

	log := e.logger.With(zap.String("job_id", rec.JobID))
	obj, err := llmjson.Decode(raw, assessmentSchema)
	if err != nil {
		log.Warn("discarding assessment", zap.Error(err), zap.String("response", utils.TruncateForLog(raw, 200)))
		return nil, false
	}

	fit := llmjson.Float(obj["fit_score"])
	difficulty := llmjson.Float(obj["difficulty_score"])
	if math.IsNaN(fit) || math.IsNaN(difficulty) {
		log.Warn("assessment scores are not numeric",
			zap.Any("fit_score", obj["fit_score"]),
			zap.Any("difficulty_score", obj["difficulty_score"]),
		)
		return nil, false
	}

	if s, ok := obj["fit_alignment"].(string); ok {
		obj["fit_alignment"] = map[string]any{"other": s}
	}
	delete(obj, "fit_score")
	delete(obj, "difficulty_score")

	var out Assessment
	if err := llmjson.DecodeInto(obj, &out); err != nil {
		log.Warn("decoding assessment failed", zap.Error(err))
		return nil, false
	}
	out.FitScore = clampScore(fit)
	out.DifficultyScore = clampScore(difficulty)
	out.FitReasoning = strings.TrimSpace(out.FitReasoning)
	out.DifficultyReasoning = strings.TrimSpace(out.DifficultyReasoning)

	log.Debug("assessment computed",
		zap.Float64("fit_score", out.FitScore),
		zap.Float64("difficulty_score", out.DifficultyScore),
	)
	return &out, true
}

func promptVars(rec *job.Record, portfolioText string) PromptVars {
	return PromptVars{
		PortfolioSummary: orDefault(utils.TruncateWords(portfolioText, portfolioLimit), "No portfolio information provided."),
		JobTitle:         orDefault(rec.Title, "Unknown Title"),
		Institution:      orDefault(rec.Institution, "Unknown Institution"),
		PositionType:     orDefault(rec.PositionType, orDefault(rec.Level, "N/A")),
		Location:         orDefault(rec.Location, orDefault(rec.Country, "N/A")),
		Description:      orDefault(utils.TruncateWords(rec.Description, descriptionLimit), "No description provided"),
		Requirements:     orDefault(utils.TruncateWords(rec.Requirements, requirementsLimit), "No explicit requirements listed."),
	}
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func clampScore(v float64) float64 {
	return round2(math.Max(0, math.Min(v, 100)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
