package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
)

type SnapshotRepository struct {
	mu    sync.RWMutex
	items map[string]leaderboard.Snapshot
	now   func() time.Time
}

func NewSnapshotRepository(seed ...leaderboard.Snapshot) *SnapshotRepository {
	items := make(map[string]leaderboard.Snapshot, len(seed))
	for _, s := range seed {
		s.Key = s.Key.Normalize()
		items[s.Key.CacheKey()] = s
	}

	return &SnapshotRepository{
		items: items,
		now:   time.Now,
	}
}

func (r *SnapshotRepository) Get(_ context.Context, key leaderboard.PartitionKey) (leaderboard.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[key.CacheKey()]
	if !ok {
		return leaderboard.Snapshot{}, false, nil
	}

	return cloneSnapshot(s), true, nil
}

func (r *SnapshotRepository) Upsert(_ context.Context, snapshot leaderboard.Snapshot) (leaderboard.Snapshot, error) {
	snapshot = cloneSnapshot(snapshot)
	snapshot.Key = snapshot.Key.Normalize()
	snapshot.ItemCount = len(snapshot.Payload)
	snapshot.UpdatedAt = r.now().UTC()

	r.mu.Lock()
	r.items[snapshot.Key.CacheKey()] = snapshot
	r.mu.Unlock()

	return cloneSnapshot(snapshot), nil
}

// Len reports the number of stored partitions.
func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func cloneSnapshot(s leaderboard.Snapshot) leaderboard.Snapshot {
	payload := make([]leaderboard.EnrichedEntry, len(s.Payload))
	copy(payload, s.Payload)
	s.Payload = payload
	return s
}
