package matcher

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/dispatch"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/logger"
	"github.com/spigell/joe-enricher/internal/portfolio"
	"github.com/spigell/joe-enricher/internal/staleness"
)

// Stored reasoning when the heuristic stands in for the LLM.
const (
	HeuristicFitReasoning        = "Heuristic fit score used (LLM unavailable)."
	HeuristicDifficultyReasoning = "LLM difficulty estimation unavailable; heuristic default applied."

	DefaultDifficultyScore = 50.0
	DefaultBatchSize       = 10
)

// Store is the persistence the scorer needs.
type Store interface {
	Update(ctx context.Context, id string, patch job.Patch) error
}

// Counts summarizes one scorer run. Fallbacks is the subset of Processed
// scored by the heuristic.
type Counts struct {
	Processed int
	Errors    int
	Skipped   int
	Fallbacks int
}

// Scorer rescores stale postings and persists each one as soon as its
// evaluation finishes.
type Scorer struct {
	evaluator  *Evaluator
	pool       *dispatch.Pool
	store      Store
	focalAreas []string
	batchSize  int
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithFocalAreas sets the research areas used by the heuristic.
func WithFocalAreas(areas []string) Option {
	return func(s *Scorer) {
		if len(areas) > 0 {
			s.focalAreas = areas
		}
	}
}

// WithBatchSize sets how many jobs are submitted per chunk.
func WithBatchSize(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClock overrides the batch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScorer builds a scorer.
func NewScorer(evaluator *Evaluator, pool *dispatch.Pool, store Store, log *zap.Logger, opts ...Option) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	if pool == nil {
		pool = dispatch.NewPool(dispatch.WithLogger(log))
	}
	s := &Scorer{
		evaluator:  evaluator,
		pool:       pool,
		store:      store,
		focalAreas: DefaultFocalAreas,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type evaluation struct {
	assessment *Assessment
}

// Run scores records against p. Without force only records whose score is
// missing or stale for p are evaluated.
func (s *Scorer) Run(ctx context.Context, records []*job.Record, p *portfolio.Portfolio, force bool) Counts {
	var counts Counts
	log := s.logger.With(zap.String(logger.FieldRunID, uuid.NewString()), zap.Bool("force", force))

	if p.Empty() {
		log.Warn("portfolio text is empty; skipping scoring")
		return counts
	}

	pending := make([]*job.Record, 0, len(records))
	for _, rec := range records {
		if rec == nil || strings.TrimSpace(rec.JobID) == "" {
			continue
		}
		if !force && !staleness.NeedsRescore(rec, p.Hash) {
			counts.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	if len(pending) == 0 {
		log.Info("nothing to score", zap.Int("records", len(records)))
		return counts
	}

	log.Info("starting scoring", zap.Int("records", len(pending)), zap.Int("up_to_date", counts.Skipped))

	for start := 0; start < len(pending); start += s.batchSize {
		if ctx.Err() != nil {
			log.Warn("scoring interrupted", zap.Error(ctx.Err()), zap.Int("remaining", len(pending)-start))
			counts.Errors += len(pending) - start
			break
		}
		end := min(start+s.batchSize, len(pending))
		s.runChunk(ctx, log, pending[start:end], p, force, &counts)
	}

	log.Info("scoring finished",
		zap.Int("processed", counts.Processed),
		zap.Int("fallbacks", counts.Fallbacks),
		zap.Int("errors", counts.Errors),
		zap.Int("skipped", counts.Skipped),
	)
	return counts
}

func (s *Scorer) runChunk(ctx context.Context, log *zap.Logger, chunk []*job.Record, p *portfolio.Portfolio, force bool, counts *Counts) {
	stamp := s.now().UTC().Format(time.RFC3339Nano)

	byID := make(map[string]*job.Record, len(chunk))
	tasks := make([]dispatch.Task[evaluation], 0, len(chunk))
	for _, rec := range chunk {
		byID[rec.JobID] = rec
		tasks = append(tasks, dispatch.Task[evaluation]{
			Key: rec.JobID,
			Run: func(ctx context.Context) (evaluation, error) {
				a, ok := s.evaluator.Evaluate(ctx, rec, p.CombinedText)
				if !ok {
					return evaluation{}, nil
				}
				return evaluation{assessment: a}, nil
			},
		})
	}

	for res := range dispatch.Stream(ctx, s.pool, "score", tasks) {
		rec := byID[res.Key]
		jobLog := logger.WithJob(log, rec.JobID, rec.Title)

		var a *Assessment
		if res.Value != nil {
			a = res.Value.assessment
		}

		patch, fallback := s.scorePatch(rec, a, p, force)
		patch.Set(job.FieldFitUpdatedAt, stamp).Set(job.FieldFitPortfolioHash, p.Hash)

		merged := job.Merge(rec, patch, force)
		if fallback && rec.FitAlignment != "" {
			merged[job.FieldFitAlignment] = ""
		}

		if err := s.store.Update(ctx, rec.JobID, merged); err != nil {
			jobLog.Error("saving score failed", zap.Error(err))
			counts.Errors++
			continue
		}

		counts.Processed++
		if fallback {
			counts.Fallbacks++
			jobLog.Warn("llm assessment unavailable; heuristic score stored", zap.Any("fit_score", patch[job.FieldFitScore]))
			continue
		}
		jobLog.Info("job scored",
			zap.Float64("fit_score", a.FitScore),
			zap.Float64("difficulty_score", a.DifficultyScore),
		)
	}
}

// scorePatch builds the scoring update. Without an assessment the heuristic
// fit score is used; difficulty defaults only when unset or forced. The
// heuristic has no alignment, so on fallback Run clears any stored
// fit_alignment after merging, since merging drops empty values.
func (s *Scorer) scorePatch(rec *job.Record, a *Assessment, p *portfolio.Portfolio, force bool) (job.Patch, bool) {
	if a != nil {
		patch := job.Patch{
			job.FieldFitScore:            a.FitScore,
			job.FieldDifficultyScore:     a.DifficultyScore,
			job.FieldFitReasoning:        a.FitReasoning,
			job.FieldDifficultyReasoning: a.DifficultyReasoning,
		}
		if alignment := a.AlignmentJSON(); alignment != "" {
			patch[job.FieldFitAlignment] = alignment
		}
		return patch, false
	}

	patch := job.Patch{
		job.FieldFitScore:     Heuristic(rec, p.CombinedText, s.focalAreas),
		job.FieldFitReasoning: HeuristicFitReasoning,
	}
	if force || rec.DifficultyScore == nil {
		patch[job.FieldDifficultyScore] = DefaultDifficultyScore
		patch[job.FieldDifficultyReasoning] = HeuristicDifficultyReasoning
	}
	return patch, true
}
