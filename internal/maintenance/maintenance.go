// Package maintenance keeps the SQLite catalog compact and snapshotted.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// snapshotPattern matches snapshot filenames: liner-YYYYMMDD-HHMMSS.db
var snapshotPattern = regexp.MustCompile(`^liner-\d{8}-\d{6}\.db$`)

const snapshotLayout = "20060102-150405"

// Snapshot describes one database snapshot on disk.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Status holds database size information.
type Status struct {
	DBFileSize  int64 `json:"db_file_size"`
	WALFileSize int64 `json:"wal_file_size"`
	PageCount   int64 `json:"page_count"`
	PageSize    int64 `json:"page_size"`
	Artists     int   `json:"artists"`
	Runs        int   `json:"runs"`
	Snapshots   int   `json:"snapshots"`
}

// Service provides database maintenance operations.
type Service struct {
	db        *sql.DB
	dbPath    string
	backupDir string
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a maintenance service. Snapshots go to backupDir and
// only the newest retention snapshots are kept.
func NewService(db *sql.DB, dbPath, backupDir string, retention int, logger *slog.Logger) *Service {
	if retention < 1 {
		retention = 1
	}
	return &Service{
		db:        db,
		dbPath:    dbPath,
		backupDir: backupDir,
		retention: retention,
		logger:    logger.With(slog.String("component", "maintenance")),
		now:       time.Now,
	}
}

// Status returns current database size and row counts.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		s.logger.Warn("reading page_count", "error", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		s.logger.Warn("reading page_size", "error", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artists").Scan(&st.Artists); err != nil {
		return nil, fmt.Errorf("counting artists: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrich_runs").Scan(&st.Runs); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	snaps, err := s.ListSnapshots()
	if err != nil {
		return nil, err
	}
	st.Snapshots = len(snaps)
	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Debug("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	s.logger.Info("optimize complete")
	return nil
}

// Snapshot writes a consistent copy of the database using VACUUM INTO.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := "liner-" + now.Format(snapshotLayout) + ".db"
	dest := filepath.Join(s.backupDir, filename)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.logger.Info("snapshot written",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))
	return &Snapshot{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

// ListSnapshots returns snapshots newest first.
func (s *Service) ListSnapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !snapshotPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "liner-"), ".db")
		ts, err := time.Parse(snapshotLayout, stamp)
		if err != nil {
			ts = info.ModTime()
		}
		snaps = append(snaps, Snapshot{Filename: entry.Name(), Size: info.Size(), CreatedAt: ts})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Prune deletes snapshots beyond the retention count and returns how many
// were removed.
func (s *Service) Prune() (int, error) {
	snaps, err := s.ListSnapshots()
	if err != nil {
		return 0, err
	}
	if len(snaps) <= s.retention {
		return 0, nil
	}

	removed := 0
	for _, snap := range snaps[s.retention:] {
		if err := os.Remove(filepath.Join(s.backupDir, snap.Filename)); err != nil {
			s.logger.Warn("removing old snapshot",
				slog.String("filename", snap.Filename),
				slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("pruned snapshots", slog.Int("removed", removed))
	}
	return removed, nil
}

// RunOnce optimizes, snapshots and prunes in that order.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := s.Optimize(ctx); err != nil {
		return err
	}
	if _, err := s.Snapshot(ctx); err != nil {
		return err
	}
	_, err := s.Prune()
	return err
}

// Run performs maintenance on a fixed interval until ctx is canceled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduled maintenance failed", slog.Any("error", err))
			}
		}
	}
}
