package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/cache"
	"go.opentelemetry.io/otel/attribute"
)

type LeaderboardQuery struct {
	Game     string
	Region   string
	Queue    string
	Tier     string
	Division string
}

type LeaderboardView struct {
	Key      leaderboard.PartitionKey
	Status   CacheStatus
	Snapshot *leaderboard.Snapshot
}

// Usable reports whether the view carries data read paths may serve.
func (v LeaderboardView) Usable() bool {
	return v.Status == CacheStatusHit && v.Snapshot != nil
}

// MaxAge is the remaining freshness window, zero for unusable views.
func (v LeaderboardView) MaxAge(now time.Time) time.Duration {
	if !v.Usable() {
		return 0
	}
	remaining := v.Snapshot.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type LeaderboardQueryConfig struct {
	LoLQueue        string
	TFTQueue        string
	DefaultTier     string
	DefaultDivision string
}

// LeaderboardQueryService serves cached snapshots without touching the
// provider. An optional in-process store absorbs repeated reads.
type LeaderboardQueryService struct {
	snapshots *SnapshotCache
	store     *cache.Store[*leaderboard.Snapshot]
	cfg       LeaderboardQueryConfig
}

func NewLeaderboardQueryService(snapshots *SnapshotCache, store *cache.Store[*leaderboard.Snapshot], cfg LeaderboardQueryConfig) *LeaderboardQueryService {
	if strings.TrimSpace(cfg.DefaultTier) == "" {
		cfg.DefaultTier = "CHALLENGER"
	}
	if strings.TrimSpace(cfg.DefaultDivision) == "" {
		cfg.DefaultDivision = "I"
	}
	return &LeaderboardQueryService{
		snapshots: snapshots,
		store:     store,
		cfg:       cfg,
	}
}

func (s *LeaderboardQueryService) Get(ctx context.Context, query LeaderboardQuery) (LeaderboardView, error) {
	key, err := s.resolveKey(query)
	if err != nil {
		return LeaderboardView{}, err
	}

	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardQueryService.Get", attribute.String("partition", key.CacheKey()))
	defer span.End()

	snapshot, err := s.load(ctx, key)
	if err != nil {
		recordSpanError(span, err)
		return LeaderboardView{}, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return LeaderboardView{
		Key:      key,
		Status:   s.snapshots.Status(snapshot),
		Snapshot: snapshot,
	}, nil
}

func (s *LeaderboardQueryService) load(ctx context.Context, key leaderboard.PartitionKey) (*leaderboard.Snapshot, error) {
	if s.store == nil {
		return s.snapshots.Get(ctx, key)
	}

	snapshot, _, err := s.store.GetOrLoad(ctx, key.CacheKey(), func(ctx context.Context) (*leaderboard.Snapshot, time.Time, error) {
		found, err := s.snapshots.Get(ctx, key)
		if err != nil {
			return nil, time.Time{}, err
		}
		if found == nil {
			return nil, time.Time{}, nil
		}
		return found, found.ExpiresAt, nil
	})
	return snapshot, err
}

// Invalidate drops cached reads for one game, or all games when game is empty.
func (s *LeaderboardQueryService) Invalidate(ctx context.Context, game leaderboard.Game) int {
	if s.store == nil {
		return 0
	}
	if game == "" {
		removed := 0
		for _, g := range leaderboard.Games() {
			removed += s.store.DeletePrefix(ctx, string(g)+":")
		}
		return removed
	}
	return s.store.DeletePrefix(ctx, string(game)+":")
}

func (s *LeaderboardQueryService) resolveKey(query LeaderboardQuery) (leaderboard.PartitionKey, error) {
	game, err := leaderboard.ParseGame(query.Game)
	if err != nil {
		return leaderboard.PartitionKey{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := leaderboard.PartitionKey{
		Game:     game,
		Region:   query.Region,
		Queue:    query.Queue,
		Tier:     query.Tier,
		Division: query.Division,
	}
	if strings.TrimSpace(key.Tier) == "" {
		key.Tier = s.cfg.DefaultTier
	}
	if strings.TrimSpace(key.Division) == "" {
		key.Division = s.cfg.DefaultDivision
	}
	if strings.TrimSpace(key.Queue) == "" {
		switch game {
		case leaderboard.GameLoL:
			key.Queue = s.cfg.LoLQueue
		case leaderboard.GameTFT:
			key.Queue = s.cfg.TFTQueue
		}
	}

	key = key.Normalize()
	if err := key.Validate(); err != nil {
		return leaderboard.PartitionKey{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return key, nil
}
