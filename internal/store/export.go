package store

import (
	"context"

	"github.com/rcliao/postcache/internal/model"
)

// ExportAll returns every stored record in stored order.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]model.Record, error) {
	return s.FetchAll(ctx)
}

// Import stores records from an export as one full upsert, keeping the
// exported order. Records whose id is out of range abort the import.
func (s *SQLiteStore) Import(ctx context.Context, records []model.Record) (int, error) {
	posts := make([]model.Post, 0, len(records))
	for _, r := range records {
		posts = append(posts, model.Post{ID: int(r.ID), Title: r.TitleOrEmpty()})
	}
	return s.UpsertAll(ctx, posts)
}
