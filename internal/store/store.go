// Package store provides the post storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/postcache/internal/model"
)

var (
	// ErrStorage wraps every failure of the underlying database.
	ErrStorage = errors.New("storage error")
	// ErrIDOutOfRange is returned for ids that do not fit the 16-bit key.
	ErrIDOutOfRange = errors.New("id out of 16-bit range")
)

// SearchParams holds parameters for searching stored posts.
type SearchParams struct {
	Query string
	Limit int
}

// Store defines the post storage interface.
type Store interface {
	// Upsert inserts the post or replaces the title of an existing id.
	// New ids are appended to the end of the stored sequence.
	Upsert(ctx context.Context, id int, title string) error

	// UpsertAll writes a full fetch in one transaction. Each post's
	// position in posts becomes its stored sequence. Returns rows written.
	UpsertAll(ctx context.Context, posts []model.Post) (int, error)

	// FetchAll returns every record in stored order.
	FetchAll(ctx context.Context) ([]model.Record, error)

	// Search returns records whose title contains the query.
	Search(ctx context.Context, p SearchParams) ([]model.Record, error)

	// RecordRun persists a sync run, assigning an ID if it has none.
	RecordRun(ctx context.Context, run *model.SyncRun) error

	// ListRuns returns the most recent sync runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error)

	// Close closes the store.
	Close() error
}
