package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/spigell/joe-enricher/internal/job"
)

// Order selects the sort order of List.
type Order int

const (
	OrderDefault Order = iota
	OrderFitScore
	OrderDeadline
	OrderLastUpdated
)

var orderClauses = map[Order]string{
	OrderDefault:     "job_id ASC",
	OrderFitScore:    "fit_score IS NULL, fit_score DESC, job_id ASC",
	OrderDeadline:    "deadline IS NULL, deadline ASC, job_id ASC",
	OrderLastUpdated: "last_updated DESC, job_id ASC",
}

// Filter narrows List.
type Filter struct {
	Status      string
	MinFitScore *float64
	IDs         []string
	OrderBy     Order
	Limit       int
}

// List returns postings matching the filter.
func (s *Store) List(ctx context.Context, f Filter) ([]*job.Record, error) {
	var (
		where []string
		args  []any
	)
	if status := strings.TrimSpace(f.Status); status != "" {
		where = append(where, "application_status = ?")
		args = append(args, status)
	}
	if f.MinFitScore != nil {
		where = append(where, "fit_score >= ?")
		args = append(args, *f.MinFitScore)
	}
	if len(f.IDs) > 0 {
		where = append(where, "job_id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}

	query := "SELECT " + columnList + " FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := orderClauses[f.OrderBy]
	if !ok {
		return nil, errors.Newf("unknown order %d", f.OrderBy)
	}
	query += " ORDER BY " + order
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var out []*job.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate jobs")
	}
	return out, nil
}

// StatusCounts returns the number of postings per application status.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT application_status, COUNT(*) FROM "+table+" GROUP BY application_status")
	if err != nil {
		return nil, errors.Wrap(err, "count jobs by status")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "scan status count")
		}
		counts[status] = n
	}
	return counts, errors.Wrap(rows.Err(), "iterate status counts")
}

// AverageFitScore returns the mean score over scored postings and how many
// postings contributed.
func (s *Store) AverageFitScore(ctx context.Context) (float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := s.db.QueryRowContext(ctx, "SELECT AVG(fit_score), COUNT(fit_score) FROM "+table).Scan(&avg, &count)
	if err != nil {
		return 0, 0, errors.Wrap(err, "average fit score")
	}
	if !avg.Valid {
		return 0, 0, nil
	}
	return avg.Float64, count, nil
}
