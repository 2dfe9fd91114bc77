package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
)

type RefreshRunRepository struct {
	mu    sync.RWMutex
	items map[string]refreshrun.Run
}

func NewRefreshRunRepository() *RefreshRunRepository {
	return &RefreshRunRepository{items: make(map[string]refreshrun.Run)}
}

func (r *RefreshRunRepository) UpsertRun(_ context.Context, run refreshrun.Run) error {
	runID := strings.TrimSpace(run.RunID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.items[runID]; ok && !prev.StartedAt.IsZero() {
		run.StartedAt = prev.StartedAt
	}
	r.items[runID] = run
	return nil
}

func (r *RefreshRunRepository) ListRecent(_ context.Context, limit int) ([]refreshrun.Run, error) {
	r.mu.RLock()
	out := make([]refreshrun.Run, 0, len(r.items))
	for _, run := range r.items {
		out = append(out, run)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
