package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
)

func TestSnapshotRepository_UpsertReplacesByNormalizedKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewSnapshotRepository()
	fetchedAt := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)

	first := leaderboard.NewSnapshot(
		leaderboard.PartitionKey{Game: "lol", Region: "na1", Queue: "ranked_solo_5x5", Tier: "challenger", Division: "I"},
		[]leaderboard.EnrichedEntry{leaderboard.Enrich(leaderboard.Entry{PlayerID: "a"}, leaderboard.UnknownProfile())},
		fetchedAt, time.Hour,
	)
	if _, err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert first: %v", err)
	}

	second := leaderboard.NewSnapshot(
		leaderboard.PartitionKey{Game: "LOL", Region: "NA1", Queue: "RANKED_SOLO_5X5", Tier: "CHALLENGER", Division: "i"},
		nil, fetchedAt.Add(time.Minute), time.Hour,
	)
	if _, err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	if repo.Len() != 1 {
		t.Fatalf("expected one row per partition, got %d", repo.Len())
	}
	got, ok, err := repo.Get(ctx, leaderboard.PartitionKey{Game: "lol", Region: "na1", Queue: "ranked_solo_5x5", Tier: "challenger", Division: "i"})
	if err != nil || !ok {
		t.Fatalf("get snapshot: ok=%v err=%v", ok, err)
	}
	if got.ItemCount != 0 || !got.FetchedAt.Equal(second.FetchedAt) {
		t.Fatalf("expected second write to win, got %+v", got)
	}
}

func TestSnapshotRepository_GetMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := NewSnapshotRepository().Get(context.Background(), leaderboard.PartitionKey{Game: leaderboard.GameTFT, Region: "KR", Tier: "MASTER"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing snapshot")
	}
}

func TestSnapshotRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "EUW1", Tier: "MASTER", Division: "I"}
	seed := leaderboard.NewSnapshot(key, []leaderboard.EnrichedEntry{leaderboard.Enrich(leaderboard.Entry{PlayerID: "x"}, leaderboard.UnknownProfile())}, time.Now(), 0)
	repo := NewSnapshotRepository(seed)

	got, _, _ := repo.Get(ctx, key)
	got.Payload[0].PlayerID = "mutated"

	again, _, _ := repo.Get(ctx, key)
	if again.Payload[0].PlayerID != "x" {
		t.Fatalf("stored payload must not be aliased, got %q", again.Payload[0].PlayerID)
	}
}

func TestRefreshRunRepository_UpsertKeepsStartAndListsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRefreshRunRepository()
	base := time.Date(2026, 10, 2, 6, 0, 0, 0, time.UTC)

	if err := repo.UpsertRun(ctx, refreshrun.Run{RunID: "r1", Status: refreshrun.StatusRunning, StartedAt: base}); err != nil {
		t.Fatalf("upsert r1: %v", err)
	}
	if err := repo.UpsertRun(ctx, refreshrun.Run{RunID: "r2", Status: refreshrun.StatusRunning, StartedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("upsert r2: %v", err)
	}
	if err := repo.UpsertRun(ctx, refreshrun.Run{RunID: "r1", Status: refreshrun.StatusCompleted, StartedAt: base.Add(2 * time.Hour)}); err != nil {
		t.Fatalf("finish r1: %v", err)
	}
	if err := repo.UpsertRun(ctx, refreshrun.Run{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}

	runs, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r2" || runs[1].RunID != "r1" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[1].Status != refreshrun.StatusCompleted || !runs[1].StartedAt.Equal(base) {
		t.Fatalf("expected r1 completed with original start, got %+v", runs[1])
	}

	limited, _ := repo.ListRecent(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}
