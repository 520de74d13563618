package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/postcache/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func titles(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TitleOrEmpty()
	}
	return out
}

func TestUpsertAndFetchAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Upsert(ctx, 1, "hello"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].ID != 1 || got[0].TitleOrEmpty() != "hello" {
		t.Errorf("unexpected record %+v", got[0])
	}
	if got[0].SyncedAt.IsZero() {
		t.Error("expected synced_at to be set")
	}
}

func TestUpsertIsIdempotentPerID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Upsert(ctx, 1, "v1")
	s.Upsert(ctx, 2, "other")
	if err := s.Upsert(ctx, 1, "v2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := s.FetchAll(ctx)
	if len(got) != 2 {
		t.Fatalf("expected 2 records (no duplicates), got %d", len(got))
	}
	// id 1 keeps its original position
	if got[0].ID != 1 || got[0].TitleOrEmpty() != "v2" {
		t.Errorf("expected updated id 1 first, got %+v", got[0])
	}
	if got[1].ID != 2 {
		t.Errorf("expected id 2 second, got %+v", got[1])
	}
}

func TestUpsertOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Upsert(ctx, 40000, "too big")
	if !errors.Is(err, ErrIDOutOfRange) {
		t.Fatalf("expected ErrIDOutOfRange, got %v", err)
	}
	got, _ := s.FetchAll(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d", len(got))
	}
}

func TestUpsertAllOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.UpsertAll(ctx, []model.Post{{ID: 3, Title: "c"}, {ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	if err != nil {
		t.Fatalf("upsert all: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 written, got %d", n)
	}

	got, _ := s.FetchAll(ctx)
	want := []string{"c", "a", "b"}
	if g := titles(got); len(g) != 3 || g[0] != want[0] || g[1] != want[1] || g[2] != want[2] {
		t.Errorf("order: got %v, want %v", g, want)
	}
}

func TestUpsertAllRepeatedSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := []model.Post{{ID: 1, Title: "Hello"}, {ID: 2, Title: "World"}, {ID: 9, Title: "stale"}}
	second := []model.Post{{ID: 2, Title: "World!"}, {ID: 1, Title: "Hello"}}

	if _, err := s.UpsertAll(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertAll(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, _ := s.FetchAll(ctx)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	g := titles(got)
	if g[0] != "World!" || g[1] != "Hello" || g[2] != "stale" {
		t.Errorf("order after resync: got %v", g)
	}
}

func TestUpsertAllRejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertAll(ctx, []model.Post{{ID: 1, Title: "ok"}, {ID: -40000, Title: "bad"}})
	if !errors.Is(err, ErrIDOutOfRange) {
		t.Fatalf("expected ErrIDOutOfRange, got %v", err)
	}
	got, _ := s.FetchAll(ctx)
	if len(got) != 0 {
		t.Errorf("expected nothing written, got %d", len(got))
	}
}

func TestUpsertAppendsAfterSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertAll(ctx, []model.Post{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	s.Upsert(ctx, 50, "z")

	got, _ := s.FetchAll(ctx)
	if len(got) != 3 || got[2].ID != 50 {
		t.Errorf("expected id 50 appended last, got %+v", got)
	}
}

func TestConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpsertAll(ctx, []model.Post{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
		}()
	}
	wg.Wait()

	got, _ := s.FetchAll(ctx)
	if len(got) != 2 {
		t.Errorf("expected 2 records after overlapping syncs, got %d", len(got))
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertAll(ctx, []model.Post{
		{ID: 1, Title: "Go is a compiled language"},
		{ID: 2, Title: "Python is an interpreted language"},
		{ID: 3, Title: "100% coverage"},
	})

	got, err := s.Search(ctx, SearchParams{Query: "LANGUAGE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}

	got, _ = s.Search(ctx, SearchParams{Query: "%"})
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("expected literal %% match on id 3, got %+v", got)
	}

	got, _ = s.Search(ctx, SearchParams{Query: "javascript"})
	if len(got) != 0 {
		t.Errorf("expected 0 results, got %d", len(got))
	}
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Now().Add(-time.Minute)
	ok := &model.SyncRun{Endpoint: "http://x", StartedAt: start, FinishedAt: start.Add(time.Second), Fetched: 2, Stored: 2}
	failed := &model.SyncRun{Endpoint: "http://x", StartedAt: start.Add(10 * time.Second), FinishedAt: start.Add(11 * time.Second), Error: "boom"}

	if err := s.RecordRun(ctx, ok); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := s.RecordRun(ctx, failed); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if ok.ID == "" || failed.ID == "" || ok.ID == failed.ID {
		t.Errorf("expected distinct ids, got %q %q", ok.ID, failed.ID)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Error != "boom" {
		t.Errorf("expected newest (failed) run first, got %+v", runs[0])
	}
	if runs[1].Stored != 2 || runs[1].Error != "" {
		t.Errorf("unexpected run %+v", runs[1])
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.UpsertAll(ctx, []model.Post{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	now := time.Now()
	s.RecordRun(ctx, &model.SyncRun{Endpoint: "e", StartedAt: now, FinishedAt: now, Stored: 2})

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Records != 2 {
		t.Errorf("records: got %d", st.Records)
	}
	if st.Runs != 1 || st.LastRun == nil || st.LastSuccess == nil {
		t.Errorf("run stats: %+v", st)
	}
	if st.DBPath != dbPath {
		t.Errorf("db path: got %q", st.DBPath)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.UpsertAll(ctx, []model.Post{{ID: 2, Title: "b"}, {ID: 1, Title: "a"}})

	records, err := src.ExportAll(ctx)
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, records)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	got, _ := dst.FetchAll(ctx)
	if g := titles(got); len(g) != 2 || g[0] != "b" || g[1] != "a" {
		t.Errorf("imported order: got %v", g)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestClosedStoreWrapsErrStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := s.FetchAll(ctx); !errors.Is(err, ErrStorage) {
		t.Errorf("fetch all: expected ErrStorage, got %v", err)
	}
	if _, err := s.UpsertAll(ctx, []model.Post{{ID: 1, Title: "a"}}); !errors.Is(err, ErrStorage) {
		t.Errorf("upsert all: expected ErrStorage, got %v", err)
	}
	if err := s.Upsert(ctx, 1, "a"); !errors.Is(err, ErrStorage) {
		t.Errorf("upsert: expected ErrStorage, got %v", err)
	}
	if err := s.RecordRun(ctx, &model.SyncRun{Endpoint: "e"}); !errors.Is(err, ErrStorage) {
		t.Errorf("record run: expected ErrStorage, got %v", err)
	}
	if _, err := s.Stats(ctx, ""); !errors.Is(err, ErrStorage) {
		t.Errorf("stats: expected ErrStorage, got %v", err)
	}
}

func TestMalformedTimestampScansAsZero(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO id_and_title (id, title, seq, synced_at) VALUES (1, 'a', 0, 'yesterday')`)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(got) != 1 || !got[0].SyncedAt.IsZero() {
		t.Errorf("expected one record with zero synced_at, got %+v", got)
	}
}
