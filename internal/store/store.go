// Package store persists job postings in SQLite.
package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/joe-enricher/internal/job"
)

const table = "job_postings"

// ErrNotFound is returned when no posting has the requested id.
var ErrNotFound = errors.New("job not found")

// ErrInvalidStatus is returned by SetStatus for unknown statuses.
var ErrInvalidStatus = errors.New("invalid application status")

// Store is a SQLite-backed job repository. Writes are single statements and
// the connection pool is capped at one connection, so writers serialize.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %q", pragma)
		}
	}

	version, err := migrateUp(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("database opened", zap.String("path", path), zap.Uint("schema_version", version))

	s := New(db, logger)
	s.path = path
	return s, nil
}

// New wraps an existing handle without running migrations.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path, empty for wrapped handles.
func (s *Store) Path() string { return s.path }

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

var columnList = func() string {
	cols := job.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}()

// Get loads one posting.
func (s *Store) Get(ctx context.Context, id string) (*job.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columnList+" FROM "+table+" WHERE job_id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return rec, nil
}

// Insert adds a posting if its id is new and reports whether it did.
func (s *Store) Insert(ctx context.Context, rec *job.Record) (bool, error) {
	if strings.TrimSpace(rec.JobID) == "" {
		return false, errors.New("job id is required")
	}

	cols := []string{string(job.FieldJobID)}
	args := []any{rec.JobID}
	for _, field := range sortedFields(job.Schema) {
		value := rec.Get(field)
		if job.IsEmpty(value) {
			continue
		}
		cols = append(cols, string(field))
		args = append(args, value)
	}
	if job.IsEmpty(rec.ApplicationStatus) {
		cols = append(cols, string(job.FieldApplicationStatus))
		args = append(args, job.StatusNew)
	}
	cols = append(cols, string(job.FieldLastUpdated))
	args = append(args, s.timestamp())

	query := "INSERT OR IGNORE INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "insert job %s", rec.JobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "insert job %s", rec.JobID)
	}
	return n > 0, nil
}

// Update writes a partial update. Only fields known to the merge schema are
// accepted. last_updated moves only when source or enrichment content
// changes, so scoring and status writes never make a score look stale.
func (s *Store) Update(ctx context.Context, id string, patch job.Patch) error {
	if len(patch) == 0 {
		return nil
	}

	fields := make([]job.Field, 0, len(patch))
	for field := range patch {
		if _, ok := job.Schema[field]; !ok {
			return errors.Newf("field %q cannot be updated", field)
		}
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, field := range fields {
		sets = append(sets, string(field)+" = ?")
		args = append(args, sqlValue(patch[field]))
	}
	if patch.Touches(job.ClassSource, job.ClassEnrichment) {
		sets = append(sets, string(job.FieldLastUpdated)+" = ?")
		args = append(args, s.timestamp())
	}
	args = append(args, id)

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE job_id = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "update job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update job %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

// SetStatus records a user decision about a posting.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !job.ValidStatus(status) {
		return errors.WithHintf(errors.Wrapf(ErrInvalidStatus, "%q", status),
			"valid statuses: %s", strings.Join(job.Statuses, ", "))
	}
	return s.Update(ctx, id, job.Patch{job.FieldApplicationStatus: status})
}

// MarkExpired moves postings still in the default status whose ISO deadline
// is before today to expired. Statuses set by the user are left alone.
func (s *Store) MarkExpired(ctx context.Context, today time.Time) (int64, error) {
	query := "UPDATE " + table + " SET application_status = ? " +
		"WHERE application_status = ? " +
		"AND deadline GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]' " +
		"AND deadline < ?"
	res, err := s.db.ExecContext(ctx, query, job.StatusExpired, job.StatusNew, today.Format(job.DateLayout))
	if err != nil {
		return 0, errors.Wrap(err, "mark expired jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "mark expired jobs")
	}
	if n > 0 {
		s.logger.Info("marked jobs as expired", zap.Int64("count", n))
	}
	return n, nil
}

func scanRecord(row interface{ Scan(...any) error }) (*job.Record, error) {
	cols := job.Columns()
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch kindOf(col) {
		case job.KindBool:
			dest[i] = new(sql.NullBool)
		case job.KindFloat:
			dest[i] = new(sql.NullFloat64)
		default:
			dest[i] = new(sql.NullString)
		}
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	patch := make(job.Patch, len(cols))
	for i, col := range cols {
		switch v := dest[i].(type) {
		case *sql.NullBool:
			if v.Valid {
				patch[col] = v.Bool
			}
		case *sql.NullFloat64:
			if v.Valid {
				patch[col] = v.Float64
			}
		case *sql.NullString:
			if v.Valid {
				patch[col] = v.String
			}
		}
	}

	rec := &job.Record{}
	if err := rec.Apply(patch); err != nil {
		return nil, err
	}
	return rec, nil
}

func kindOf(f job.Field) job.Kind {
	if spec, ok := job.Schema[f]; ok {
		return spec.Kind
	}
	return job.KindText
}

func sqlValue(v any) any {
	switch value := v.(type) {
	case []string:
		return job.JoinList(value)
	case *bool:
		if value == nil {
			return nil
		}
		return *value
	case *float64:
		if value == nil {
			return nil
		}
		return *value
	}
	return v
}

func sortedFields(schema map[job.Field]job.FieldSpec) []job.Field {
	fields := make([]job.Field, 0, len(schema))
	for f := range schema {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
