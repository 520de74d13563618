package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rcliao/postcache/internal/model"
	_ "modernc.org/sqlite"
)

// runTimeFormat is fixed-width so started_at sorts lexically.
const runTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w: %w", ErrStorage, err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w: %w", ErrStorage, err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS id_and_title (
		id        INTEGER PRIMARY KEY CHECK (id BETWEEN -32768 AND 32767),
		title     TEXT,
		seq       INTEGER NOT NULL,
		synced_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_id_and_title_seq ON id_and_title(seq, id);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id          TEXT PRIMARY KEY,
		endpoint    TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		fetched     INTEGER NOT NULL DEFAULT 0,
		stored      INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const upsertAppend = `
	INSERT INTO id_and_title (id, title, seq, synced_at)
	VALUES (?, ?, (SELECT COALESCE(MAX(seq) + 1, 0) FROM id_and_title), ?)
	ON CONFLICT(id) DO UPDATE SET title = excluded.title, synced_at = excluded.synced_at`

const upsertAt = `
	INSERT INTO id_and_title (id, title, seq, synced_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET title = excluded.title, seq = excluded.seq, synced_at = excluded.synced_at`

func (s *SQLiteStore) Upsert(ctx context.Context, id int, title string) error {
	if !model.ValidID(id) {
		return fmt.Errorf("upsert %d: %w", id, ErrIDOutOfRange)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, upsertAppend, id, title, now); err != nil {
		return fmt.Errorf("upsert %d: %w: %w", id, ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertAll(ctx context.Context, posts []model.Post) (int, error) {
	for _, p := range posts {
		if !model.ValidID(p.ID) {
			return 0, fmt.Errorf("upsert %d: %w", p.ID, ErrIDOutOfRange)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	// Move existing rows past the incoming range so the fetch order wins
	// and ids missing from this fetch trail after it.
	if _, err := tx.ExecContext(ctx, `UPDATE id_and_title SET seq = seq + ?`, len(posts)); err != nil {
		return 0, fmt.Errorf("shift seq: %w: %w", ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertAt)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w: %w", ErrStorage, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, p := range posts {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Title, i, now); err != nil {
			return 0, fmt.Errorf("upsert %d: %w: %w", p.ID, ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w: %w", ErrStorage, err)
	}
	return len(posts), nil
}

func (s *SQLiteStore) FetchAll(ctx context.Context) ([]model.Record, error) {
	return s.queryRecords(ctx,
		`SELECT id, title, seq, synced_at FROM id_and_title ORDER BY seq, id`)
}

func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Record, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := "%" + escapeLike(p.Query) + "%"
	return s.queryRecords(ctx,
		`SELECT id, title, seq, synced_at FROM id_and_title
		 WHERE title LIKE ? ESCAPE '\'
		 ORDER BY seq, id LIMIT ?`, q, limit)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w: %w", ErrStorage, err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w: %w", ErrStorage, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w: %w", ErrStorage, err)
	}
	return records, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		t := run.StartedAt
		if t.IsZero() {
			t = time.Now()
		}
		run.ID = s.newID(t)
	}

	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, endpoint, started_at, finished_at, fetched, stored, skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Endpoint,
		run.StartedAt.UTC().Format(runTimeFormat), run.FinishedAt.UTC().Format(runTimeFormat),
		run.Fetched, run.Stored, run.Skipped, errText)
	if err != nil {
		return fmt.Errorf("insert sync run: %w: %w", ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, started_at, finished_at, fetched, stored, skipped, error
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w: %w", ErrStorage, err)
	}
	defer rows.Close()

	runs := []model.SyncRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync run: %w: %w", ErrStorage, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sync runs: %w: %w", ErrStorage, err)
	}
	return runs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.Record, error) {
	var r model.Record
	var title sql.NullString
	var syncedAt string

	if err := row.Scan(&r.ID, &title, &r.Seq, &syncedAt); err != nil {
		return r, err
	}
	if title.Valid {
		t := title.String
		r.Title = &t
	}
	// a malformed timestamp is left as the zero time rather than failing the read
	r.SyncedAt, _ = time.Parse(time.RFC3339, syncedAt)
	return r, nil
}

func scanRun(row scanner) (model.SyncRun, error) {
	var r model.SyncRun
	var startedAt, finishedAt string
	var errText sql.NullString

	err := row.Scan(&r.ID, &r.Endpoint, &startedAt, &finishedAt,
		&r.Fetched, &r.Stored, &r.Skipped, &errText)
	if err != nil {
		return r, err
	}
	// malformed timestamps stay zero, as in scanRecord
	r.StartedAt, _ = time.Parse(runTimeFormat, startedAt)
	r.FinishedAt, _ = time.Parse(runTimeFormat, finishedAt)
	if errText.Valid {
		r.Error = errText.String
	}
	return r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
