// Package staleness decides whether a stored posting needs another
// enrichment pass or a fresh fit/difficulty score. Both checks are pure.
package staleness

import (
	"strings"
	"time"

	"github.com/spigell/joe-enricher/internal/job"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// NeedsEnrichment is true when any enrichment field is still empty.
func NeedsEnrichment(rec *job.Record) bool {
	if rec == nil {
		return false
	}
	for _, field := range job.EnrichmentFields {
		if job.IsEmpty(rec.Get(field)) {
			return true
		}
	}
	return false
}

// NeedsRescore is false only when both scores and the track are present, the
// score was computed for portfolioHash, and it is not older than the last
// content change. Unparseable timestamps mean stale.
func NeedsRescore(rec *job.Record, portfolioHash string) bool {
	if rec == nil {
		return false
	}
	if rec.FitScore == nil || rec.DifficultyScore == nil {
		return true
	}
	if strings.TrimSpace(rec.PositionTrack) == "" {
		return true
	}
	if rec.FitPortfolioHash != portfolioHash {
		return true
	}

	scoredAt, ok := ParseTimestamp(rec.FitUpdatedAt)
	if !ok {
		return true
	}
	changedAt, ok := ParseTimestamp(rec.LastUpdated)
	if !ok {
		return true
	}

	return scoredAt.Before(changedAt)
}

// ParseTimestamp accepts the timestamp shapes written by the store and by
// older SQLite defaults. Zone-less values are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
