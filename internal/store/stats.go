package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rcliao/postcache/internal/model"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string         `json:"db_path"`
	DBSizeBytes int64          `json:"db_size_bytes"`
	Records     int            `json:"records"`
	UntitledIDs int            `json:"untitled"`
	Runs        int            `json:"runs"`
	LastRun     *model.SyncRun `json:"last_run,omitempty"`
	LastSuccess *time.Time     `json:"last_success,omitempty"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) - COUNT(title) FROM id_and_title`).Scan(&st.Records, &st.UntitledIDs)
	if err != nil {
		return st, fmt.Errorf("count records: %w: %w", ErrStorage, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_runs`).Scan(&st.Runs); err != nil {
		return st, fmt.Errorf("count runs: %w: %w", ErrStorage, err)
	}

	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return st, err
	}
	if len(runs) > 0 {
		st.LastRun = &runs[0]
	}

	var finished string
	err = s.db.QueryRowContext(ctx,
		`SELECT finished_at FROM sync_runs WHERE error IS NULL ORDER BY started_at DESC LIMIT 1`).Scan(&finished)
	switch {
	case err == nil:
		if t, perr := time.Parse(runTimeFormat, finished); perr == nil {
			st.LastSuccess = &t
		}
	case !errors.Is(err, sql.ErrNoRows):
		return st, fmt.Errorf("last success: %w: %w", ErrStorage, err)
	}

	return st, nil
}
