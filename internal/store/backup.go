package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const backupPrefix = "job_listings_"

// BackupIfNewDay snapshots the database into a backups directory next to it
// unless a snapshot was already taken today. It returns the new file path or
// an empty string when nothing was written.
func (s *Store) BackupIfNewDay(ctx context.Context) (string, error) {
	if s.path == "" || s.path == ":memory:" {
		return "", nil
	}

	now := s.now()
	dir := filepath.Join(filepath.Dir(s.path), "backups")
	existing, err := filepath.Glob(filepath.Join(dir, backupPrefix+now.Format("20060102")+"_*.db"))
	if err != nil {
		return "", errors.Wrap(err, "list backups")
	}
	if len(existing) > 0 {
		s.logger.Debug("backup already taken today", zap.String("backup", existing[0]))
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create backup directory %s", dir)
	}

	target := filepath.Join(dir, backupPrefix+now.Format("20060102_150405")+".db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return "", errors.Wrapf(err, "backup database to %s", target)
	}

	s.logger.Info("database backup created", zap.String("backup", target))
	return target, nil
}
