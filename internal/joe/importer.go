package joe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/logger"
)

// Store is the persistence the importer needs.
type Store interface {
	Insert(ctx context.Context, rec *job.Record) (bool, error)
	Get(ctx context.Context, id string) (*job.Record, error)
	Update(ctx context.Context, id string, patch job.Patch) error
	MarkExpired(ctx context.Context, today time.Time) (int64, error)
}

// ImportCounts summarizes one import.
type ImportCounts struct {
	Inserted  int
	Updated   int
	Unchanged int
	Expired   int64
	Errors    int
}

// Importer upserts parsed postings.
type Importer struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewImporter builds an importer.
func NewImporter(store Store, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, now: time.Now, logger: log}
}

// Import inserts new postings and refreshes the source columns of known
// ones. User decisions and derived columns are left alone. Afterwards
// postings past their deadline are marked expired.
func (i *Importer) Import(ctx context.Context, records []*job.Record) ImportCounts {
	var counts ImportCounts

	for _, rec := range records {
		log := logger.WithJob(i.logger, rec.JobID, rec.Title)

		inserted, err := i.store.Insert(ctx, rec)
		if err != nil {
			log.Error("inserting job failed", zap.Error(err))
			counts.Errors++
			continue
		}
		if inserted {
			counts.Inserted++
			continue
		}

		existing, err := i.store.Get(ctx, rec.JobID)
		if err != nil {
			log.Error("loading existing job failed", zap.Error(err))
			counts.Errors++
			continue
		}

		update := SourcePatch(rec)
		// A deadline already normalized by enrichment is not reverted to raw text.
		if job.IsISODate(existing.Deadline) && !job.IsISODate(rec.Deadline) {
			delete(update, job.FieldDeadline)
		}

		patch := job.Merge(existing, update, false)
		if len(patch) == 0 {
			counts.Unchanged++
			continue
		}
		if err := i.store.Update(ctx, rec.JobID, patch); err != nil {
			log.Error("updating job failed", zap.Error(err))
			counts.Errors++
			continue
		}
		log.Debug("job source refreshed", zap.Int("fields", len(patch)))
		counts.Updated++
	}

	expired, err := i.store.MarkExpired(ctx, i.now())
	if err != nil {
		i.logger.Error("marking expired jobs failed", zap.Error(err))
		counts.Errors++
	}
	counts.Expired = expired

	i.logger.Info("import finished",
		zap.Int("inserted", counts.Inserted),
		zap.Int("updated", counts.Updated),
		zap.Int("unchanged", counts.Unchanged),
		zap.Int64("expired", counts.Expired),
		zap.Int("errors", counts.Errors),
	)
	return counts
}

// SourcePatch holds the source columns of rec.
func SourcePatch(rec *job.Record) job.Patch {
	patch := job.Patch{}
	for field, spec := range job.Schema {
		if spec.Class != job.ClassSource {
			continue
		}
		if v := rec.Get(field); v != nil {
			patch[field] = v
		}
	}
	return patch
}
