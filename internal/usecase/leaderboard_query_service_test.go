package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	leaderboardmock "github.com/riskibarqy/ladder-cache/internal/mocks/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/cache"
	"github.com/stretchr/testify/mock"
)

func testQueryConfig() LeaderboardQueryConfig {
	return LeaderboardQueryConfig{LoLQueue: "RANKED_SOLO_5x5", TFTQueue: "RANKED_TFT"}
}

func TestLeaderboardQueryService_HitIsCachedInProcess(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	key := leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Queue: "RANKED_SOLO_5X5", Tier: "CHALLENGER", Division: "I"}
	snapshot := leaderboard.NewSnapshot(key, []leaderboard.EnrichedEntry{{}}, now, time.Hour)

	repo := leaderboardmock.NewSnapshotRepository(t)
	repo.On("Get", mock.Anything, key).Return(snapshot, true, nil).Once()

	svc := NewLeaderboardQueryService(NewSnapshotCache(repo, time.Hour), cache.NewStore[*leaderboard.Snapshot](time.Minute), testQueryConfig())

	for i := 0; i < 3; i++ {
		view, err := svc.Get(context.Background(), LeaderboardQuery{Game: "LOL", Region: "na1"})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if view.Status != CacheStatusHit || !view.Usable() {
			t.Fatalf("expected usable hit, got %+v", view)
		}
		if age := view.MaxAge(now); age <= 0 || age > time.Hour {
			t.Fatalf("unexpected max age %s", age)
		}
	}
}

func TestLeaderboardQueryService_MissAndStale(t *testing.T) {
	t.Parallel()

	repo := leaderboardmock.NewSnapshotRepository(t)
	tftKey := leaderboard.PartitionKey{Game: leaderboard.GameTFT, Region: "KR", Queue: "RANKED_TFT", Tier: "MASTER", Division: "I"}
	repo.On("Get", mock.Anything, tftKey).Return(leaderboard.Snapshot{}, false, nil).Once()

	lolKey := leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "EUW1", Queue: "RANKED_SOLO_5X5", Tier: "CHALLENGER", Division: "I"}
	stale := leaderboard.NewSnapshot(lolKey, nil, time.Now().Add(-3*time.Hour), time.Hour)
	repo.On("Get", mock.Anything, lolKey).Return(stale, true, nil).Once()

	svc := NewLeaderboardQueryService(NewSnapshotCache(repo, time.Hour), nil, testQueryConfig())

	miss, err := svc.Get(context.Background(), LeaderboardQuery{Game: "tft", Region: "kr", Tier: "master"})
	if err != nil {
		t.Fatalf("get miss: %v", err)
	}
	if miss.Status != CacheStatusMiss || miss.Usable() || miss.MaxAge(time.Now()) != 0 {
		t.Fatalf("unexpected miss view %+v", miss)
	}

	staleView, err := svc.Get(context.Background(), LeaderboardQuery{Game: "lol", Region: "euw1"})
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if staleView.Status != CacheStatusStale || staleView.Usable() {
		t.Fatalf("stale rows must not be usable, got %+v", staleView)
	}
}

func TestLeaderboardQueryService_Errors(t *testing.T) {
	t.Parallel()

	repo := leaderboardmock.NewSnapshotRepository(t)
	repo.On("Get", mock.Anything, mock.Anything).Return(leaderboard.Snapshot{}, false, errors.New("db down")).Once()
	svc := NewLeaderboardQueryService(NewSnapshotCache(repo, time.Hour), cache.NewStore[*leaderboard.Snapshot](time.Minute), testQueryConfig())

	if _, err := svc.Get(context.Background(), LeaderboardQuery{Game: "lol", Region: "NA1"}); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := svc.Get(context.Background(), LeaderboardQuery{Game: "dota", Region: "NA1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid game error, got %v", err)
	}
	if _, err := svc.Get(context.Background(), LeaderboardQuery{Game: "lol"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing region error, got %v", err)
	}
}

func TestLeaderboardQueryService_InvalidateDropsGame(t *testing.T) {
	t.Parallel()

	store := cache.NewStore[*leaderboard.Snapshot](time.Minute)
	ctx := context.Background()
	store.Set(ctx, "lol:NA1:RANKED_SOLO_5X5:CHALLENGER:I", nil)
	store.Set(ctx, "lol:KR:RANKED_SOLO_5X5:CHALLENGER:I", nil)
	store.Set(ctx, "tft:KR:RANKED_TFT:CHALLENGER:I", nil)

	svc := NewLeaderboardQueryService(NewSnapshotCache(leaderboardmock.NewSnapshotRepository(t), time.Hour), store, testQueryConfig())

	if removed := svc.Invalidate(ctx, leaderboard.GameLoL); removed != 2 {
		t.Fatalf("expected 2 lol entries removed, got %d", removed)
	}
	if removed := svc.Invalidate(ctx, ""); removed != 1 {
		t.Fatalf("expected remaining tft entry removed, got %d", removed)
	}
}
