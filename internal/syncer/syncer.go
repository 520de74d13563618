// Package syncer moves posts between the remote API, the local store and
// the list projection.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcliao/postcache/internal/model"
	"github.com/rcliao/postcache/internal/projection"
	"github.com/rcliao/postcache/internal/remote"
	"github.com/rcliao/postcache/internal/store"
)

// Fetcher retrieves the remote post collection.
type Fetcher interface {
	FetchPosts(ctx context.Context) ([]model.Post, error)
}

// Syncer wires a Fetcher to a Store.
type Syncer struct {
	fetcher  Fetcher
	store    store.Store
	logger   *slog.Logger
	endpoint string
}

// New creates a Syncer. endpoint is only used to label recorded runs.
func New(f Fetcher, s store.Store, endpoint string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{fetcher: f, store: s, logger: logger, endpoint: endpoint}
}

// Sync fetches the remote collection and upserts every valid entry. Ids
// repeated within one response are written once, with their last title.
// A run is recorded whether or not the sync succeeds.
func (s *Syncer) Sync(ctx context.Context) (*model.SyncRun, error) {
	_, run, err := s.SyncList(ctx)
	return run, err
}

// SyncList is Sync that also returns the fetched collection as a remote
// projection. The list is nil when the fetch fails.
func (s *Syncer) SyncList(ctx context.Context) (*projection.List, *model.SyncRun, error) {
	run := &model.SyncRun{Endpoint: s.endpoint, StartedAt: time.Now().UTC()}

	posts, err := s.sync(ctx, run)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
	}

	if rerr := s.store.RecordRun(ctx, run); rerr != nil {
		s.logger.Warn("record sync run", "error", rerr)
	}

	if posts == nil {
		return nil, run, err
	}
	list := projection.FromPosts(posts)
	if err != nil {
		return list, run, err
	}
	s.logger.Info("sync complete",
		"run", run.ID, "fetched", run.Fetched, "stored", run.Stored, "skipped", run.Skipped)
	return list, run, nil
}

// sync returns the deduped fetch even when persisting it fails.
func (s *Syncer) sync(ctx context.Context, run *model.SyncRun) ([]model.Post, error) {
	posts, err := s.fetcher.FetchPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	run.Fetched = len(posts)

	deduped := remote.Dedupe(posts)
	valid := make([]model.Post, 0, len(deduped))
	for _, p := range deduped {
		if !model.ValidID(p.ID) {
			s.logger.Warn("skip post with out-of-range id", "id", p.ID)
			run.Skipped++
			continue
		}
		valid = append(valid, p)
	}

	n, err := s.store.UpsertAll(ctx, valid)
	if err != nil {
		return deduped, fmt.Errorf("persist: %w", err)
	}
	run.Stored = n
	return deduped, nil
}

// LoadRemote fetches and projects the remote collection without persisting.
func (s *Syncer) LoadRemote(ctx context.Context) (*projection.List, error) {
	posts, err := s.fetcher.FetchPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return projection.FromPosts(posts), nil
}

// LoadLocal projects whatever is currently stored.
func (s *Syncer) LoadLocal(ctx context.Context) (*projection.List, error) {
	records, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return projection.FromRecords(records), nil
}
