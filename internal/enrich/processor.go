package enrich

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/logger"
	"github.com/spigell/joe-enricher/internal/staleness"
)

const (
	DefaultBatchSize = 10

	researchAreasPrefix = "Research Areas: "
)

// Store is the persistence the processor needs.
type Store interface {
	Get(ctx context.Context, id string) (*job.Record, error)
	Update(ctx context.Context, id string, patch job.Patch) error
}

// Counts summarizes one processor run.
type Counts struct {
	Processed int
	Errors    int
	Skipped   int
}

// Processor enriches records in sequential chunks.
type Processor struct {
	stages    *Stages
	store     Store
	batchSize int
	logger    *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets how many records run per chunk.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewProcessor builds a processor on top of the given stages.
func NewProcessor(stages *Stages, store Store, log *zap.Logger, opts ...Option) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Processor{
		stages:    stages,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run enriches records and persists every job as soon as its chunk is done.
// Records that are already complete are skipped unless force is set.
func (p *Processor) Run(ctx context.Context, records []*job.Record, force bool) Counts {
	var counts Counts
	log := p.logger.With(zap.String(logger.FieldRunID, uuid.NewString()), zap.Bool("force", force))

	pending := make([]*job.Record, 0, len(records))
	for _, rec := range records {
		if rec == nil || strings.TrimSpace(rec.JobID) == "" {
			continue
		}
		if !force && !staleness.NeedsEnrichment(rec) {
			counts.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	if len(pending) == 0 {
		log.Info("nothing to enrich", zap.Int("records", len(records)))
		return counts
	}

	log.Info("starting enrichment",
		zap.Int("records", len(pending)),
		zap.Int("already_complete", counts.Skipped),
		zap.Int("batch_size", p.batchSize),
	)

	for start := 0; start < len(pending); start += p.batchSize {
		if ctx.Err() != nil {
			log.Warn("enrichment interrupted", zap.Error(ctx.Err()), zap.Int("remaining", len(pending)-start))
			counts.Errors += len(pending) - start
			break
		}

		end := min(start+p.batchSize, len(pending))
		chunk := pending[start:end]
		p.runChunk(ctx, log, chunk, force, &counts)

		log.Info("enrichment chunk done",
			zap.Int("done", end),
			zap.Int("total", len(pending)),
			zap.Int("processed", counts.Processed),
			zap.Int("errors", counts.Errors),
			zap.Int("skipped", counts.Skipped),
		)
	}

	log.Info("enrichment finished",
		zap.Int("processed", counts.Processed),
		zap.Int("errors", counts.Errors),
		zap.Int("skipped", counts.Skipped),
	)
	return counts
}

type stageResults struct {
	details   map[string]*Details
	deadlines map[string]*string
	classes   map[string]*Classification
	tracks    map[string]*Track
}

func (p *Processor) runChunk(ctx context.Context, log *zap.Logger, chunk []*job.Record, force bool, counts *Counts) {
	var (
		res stageResults
		wg  sync.WaitGroup
	)
	wg.Add(4)
	go func() { defer wg.Done(); res.details = p.stages.ExtractDetails(ctx, chunk) }()
	go func() { defer wg.Done(); res.deadlines = p.stages.ParseDeadlines(ctx, chunk) }()
	go func() { defer wg.Done(); res.classes = p.stages.ClassifyPosition(ctx, chunk) }()
	go func() { defer wg.Done(); res.tracks = p.stages.AssignTrack(ctx, chunk) }()
	wg.Wait()

	for _, rec := range chunk {
		jobLog := logger.WithJob(log, rec.JobID, rec.Title)

		current, err := p.store.Get(ctx, rec.JobID)
		if err != nil {
			jobLog.Error("reloading job failed", zap.Error(err))
			counts.Errors++
			continue
		}

		update, ok := buildUpdate(current, res.details[rec.JobID], res.deadlines[rec.JobID], res.classes[rec.JobID], res.tracks[rec.JobID])
		if !ok {
			jobLog.Warn("no enrichment stage produced a result")
			counts.Errors++
			continue
		}

		patch := job.Merge(current, update, force)
		if len(patch) == 0 {
			jobLog.Debug("enrichment produced no changes")
			counts.Skipped++
			continue
		}

		if err := p.store.Update(ctx, rec.JobID, patch); err != nil {
			jobLog.Error("saving enrichment failed", zap.Error(err))
			counts.Errors++
			continue
		}

		jobLog.Info("job enriched", zap.Strings("fields", patchFields(patch)))
		counts.Processed++
	}
}

// buildUpdate assembles the raw update for one job. Details take precedence,
// classification only fills what details left out. A record still without a
// track after a rejected or missing label defaults to other academia. The
// second result is false when no stage produced anything; a rejected track
// label still counts as an answer.
func buildUpdate(rec *job.Record, details *Details, deadline *string, class *Classification, track *Track) (job.Patch, bool) {
	update := job.Patch{}
	set := func(f job.Field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			update[f] = v
		}
	}

	if details != nil {
		set(job.FieldPositionType, details.PositionType)
		set(job.FieldField, details.Field)
		if strings.TrimSpace(details.Level) != "" {
			set(job.FieldLevel, JoinLevels(details.Level, rec.Title, rec.Description))
		}
		set(job.FieldRequirements, withResearchAreas(details.Requirements, details.ResearchAreas))
		set(job.FieldExtractedDeadline, details.ExtractedDeadline)
		set(job.FieldApplicationPortalURL, details.ApplicationPortalURL)
		set(job.FieldCountry, details.Country)
		set(job.FieldApplicationMaterials, details.ApplicationMaterials)
		if details.RequiresSeparateApplication != nil {
			update[job.FieldRequiresSeparateApplication] = *details.RequiresSeparateApplication
		}
		if details.ReferencesSeparateEmail != nil {
			update[job.FieldReferencesSeparateEmail] = *details.ReferencesSeparateEmail
		}
	}

	if deadline != nil && *deadline != strings.TrimSpace(rec.Deadline) {
		set(job.FieldDeadline, *deadline)
	}

	if class != nil {
		fill := func(f job.Field, v string) {
			if _, ok := update[f]; !ok {
				set(f, v)
			}
		}
		fill(job.FieldField, class.FieldFocus)
		fill(job.FieldLevel, class.Level)
		fill(job.FieldPositionType, class.Type)
	}

	if track != nil && ValidTrack(track.Label) {
		update[job.FieldPositionTrack] = track.Label
	}

	if details == nil && deadline == nil && class == nil && track == nil {
		return nil, false
	}

	if _, ok := update[job.FieldPositionTrack]; !ok && strings.TrimSpace(rec.PositionTrack) == "" {
		update[job.FieldPositionTrack] = TrackOtherAcademia
	}

	return update, true
}

func withResearchAreas(requirements, areas string) string {
	requirements = strings.TrimSpace(requirements)
	areas = strings.TrimSpace(areas)
	if areas == "" {
		return requirements
	}
	if requirements == "" {
		return researchAreasPrefix + areas
	}
	return requirements + "\n" + researchAreasPrefix + areas
}

func patchFields(p job.Patch) []string {
	out := make([]string, 0, len(p))
	for _, f := range job.Columns() {
		if _, ok := p[f]; ok {
			out = append(out, string(f))
		}
	}
	return out
}
