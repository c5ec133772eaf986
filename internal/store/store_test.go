package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	first, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestInsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.Insert(ctx, &job.Record{
		JobID:                       "1001",
		Title:                       "Assistant Professor",
		Institution:                 "State University",
		Deadline:                    "2025-11-15",
		RequiresSeparateApplication: ptr(false),
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	again, err := s.Insert(ctx, &job.Record{JobID: "1001", Title: "Duplicate"})
	require.NoError(t, err)
	assert.False(t, again)

	rec, err := s.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "Assistant Professor", rec.Title)
	assert.Equal(t, job.StatusNew, rec.ApplicationStatus)
	require.NotNil(t, rec.RequiresSeparateApplication)
	assert.False(t, *rec.RequiresSeparateApplication)
	assert.Nil(t, rec.ReferencesSeparateEmail)
	assert.Nil(t, rec.FitScore)
	assert.NotEmpty(t, rec.LastUpdated)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateBumpsLastUpdatedOnlyForContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	t0 := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	_, err := s.Insert(ctx, &job.Record{JobID: "1", Title: "Lecturer"})
	require.NoError(t, err)

	s.now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, s.Update(ctx, "1", job.Patch{job.FieldFitScore: 82.5, job.FieldFitUpdatedAt: "2025-10-01T10:00:00Z"}))

	rec, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, t0.Format(time.RFC3339Nano), rec.LastUpdated)
	require.NotNil(t, rec.FitScore)
	assert.Equal(t, 82.5, *rec.FitScore)

	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	require.NoError(t, s.Update(ctx, "1", job.Patch{job.FieldCountry: "Canada", job.FieldReferencesSeparateEmail: true}))

	rec, err = s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*time.Hour).Format(time.RFC3339Nano), rec.LastUpdated)
	assert.Equal(t, "Canada", rec.Country)
	require.NotNil(t, rec.ReferencesSeparateEmail)
	assert.True(t, *rec.ReferencesSeparateEmail)
}

func TestUpdateErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, "nope", job.Patch{job.FieldCountry: "Peru"})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Update(ctx, "nope", job.Patch{job.FieldLastUpdated: "x"})
	assert.Error(t, err)

	assert.NoError(t, s.Update(ctx, "nope", nil))
}

func TestSetStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Insert(ctx, &job.Record{JobID: "1"})
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, "1", " Applied "))
	rec, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusApplied, rec.ApplicationStatus)

	err = s.SetStatus(ctx, "1", "ghosted")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestMarkExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, rec := range []*job.Record{
		{JobID: "past", Deadline: "2025-09-30"},
		{JobID: "future", Deadline: "2025-12-01"},
		{JobID: "raw", Deadline: "Open until filled"},
		{JobID: "applied", Deadline: "2025-01-01", ApplicationStatus: job.StatusApplied},
	} {
		_, err := s.Insert(ctx, rec)
		require.NoError(t, err)
	}

	n, err := s.MarkExpired(ctx, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	expired, err := s.List(ctx, Filter{Status: job.StatusExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "past", expired[0].JobID)
}

func TestListOrderAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for id, score := range map[string]*float64{"a": ptr(40.0), "b": ptr(90.0), "c": nil, "d": ptr(65.0)} {
		_, err := s.Insert(ctx, &job.Record{JobID: id, FitScore: score})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, Filter{OrderBy: OrderFitScore})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, rec := range all {
		ids = append(ids, rec.JobID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)

	top, err := s.List(ctx, Filter{OrderBy: OrderFitScore, MinFitScore: ptr(50.0), Limit: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].JobID)

	picked, err := s.List(ctx, Filter{IDs: []string{"a", "c"}})
	require.NoError(t, err)
	assert.Len(t, picked, 2)

	avg, count, err := s.AverageFitScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.InDelta(t, 65.0, avg, 0.001)

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{job.StatusNew: 4}, counts)
}

func TestBackupIfNewDay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2025, 10, 1, 8, 30, 0, 0, time.Local) }

	first, err := s.BackupIfNewDay(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.FileExists(t, first)

	s.now = func() time.Time { return time.Date(2025, 10, 1, 18, 0, 0, 0, time.Local) }
	second, err := s.BackupIfNewDay(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)

	s.now = func() time.Time { return time.Date(2025, 10, 2, 7, 0, 0, 0, time.Local) }
	third, err := s.BackupIfNewDay(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, third)
}
