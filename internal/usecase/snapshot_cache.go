package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"go.opentelemetry.io/otel/attribute"
)

type CacheStatus string

const (
	CacheStatusHit   CacheStatus = "HIT"
	CacheStatusStale CacheStatus = "STALE"
	CacheStatusMiss  CacheStatus = "MISS"
)

// SnapshotCache wraps the snapshot repository with freshness rules.
type SnapshotCache struct {
	repo leaderboard.SnapshotRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewSnapshotCache(repo leaderboard.SnapshotRepository, defaultTTL time.Duration) *SnapshotCache {
	if defaultTTL <= 0 {
		defaultTTL = leaderboard.DefaultSnapshotTTL
	}
	return &SnapshotCache{
		repo: repo,
		ttl:  defaultTTL,
		now:  time.Now,
	}
}

func (c *SnapshotCache) TTL() time.Duration {
	return c.ttl
}

// Get returns nil when no row exists for the key.
func (c *SnapshotCache) Get(ctx context.Context, key leaderboard.PartitionKey) (*leaderboard.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotCache.Get", attribute.String("partition", key.CacheKey()))
	defer span.End()

	snapshot, found, err := c.repo.Get(ctx, key.Normalize())
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("get snapshot %s: %w", key.CacheKey(), err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

func (c *SnapshotCache) IsFresh(snapshot *leaderboard.Snapshot) bool {
	return snapshot.FreshAt(c.now())
}

// Status classifies a snapshot for read paths. Absent and expired rows are
// equally unusable and differ only in the reported status.
func (c *SnapshotCache) Status(snapshot *leaderboard.Snapshot) CacheStatus {
	switch {
	case snapshot == nil:
		return CacheStatusMiss
	case c.IsFresh(snapshot):
		return CacheStatusHit
	default:
		return CacheStatusStale
	}
}

// Upsert stamps fetchedAt with the current time and replaces any row stored
// under the same normalized key. A non-positive ttl uses the default.
func (c *SnapshotCache) Upsert(ctx context.Context, key leaderboard.PartitionKey, payload []leaderboard.EnrichedEntry, ttl time.Duration) (leaderboard.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotCache.Upsert",
		attribute.String("partition", key.CacheKey()),
		attribute.Int("item_count", len(payload)),
	)
	defer span.End()

	if ttl <= 0 {
		ttl = c.ttl
	}
	snapshot := leaderboard.NewSnapshot(key, payload, c.now().UTC(), ttl)

	stored, err := c.repo.Upsert(ctx, snapshot)
	if err != nil {
		recordSpanError(span, err)
		return leaderboard.Snapshot{}, fmt.Errorf("upsert snapshot %s: %w", key.CacheKey(), err)
	}
	return stored, nil
}
