package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/platform/workerpool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultLadderMaxEntries = 200

type PartitionRefresherConfig struct {
	EnrichConcurrency int
	// LadderMaxEntries caps the cached ladder after sorting; 0 keeps every entry.
	LadderMaxEntries int
	SnapshotTTL      time.Duration
	Retry            resilience.RetryConfig
}

func DefaultPartitionRefresherConfig() PartitionRefresherConfig {
	return PartitionRefresherConfig{
		EnrichConcurrency: 8,
		LadderMaxEntries:  defaultLadderMaxEntries,
		SnapshotTTL:       leaderboard.DefaultSnapshotTTL,
		Retry:             resilience.DefaultRetryConfig(),
	}
}

type RefreshResult struct {
	Skipped   bool `json:"skipped"`
	ItemCount int  `json:"itemCount"`
}

// PartitionRefresher rebuilds the snapshot of one partition.
type PartitionRefresher struct {
	cache    *SnapshotCache
	provider leaderboard.RankProvider
	cfg      PartitionRefresherConfig
	retrier  *resilience.Retrier
	logger   *logging.Logger
	metrics  RefreshMetrics
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPartitionRefresher(
	cache *SnapshotCache,
	provider leaderboard.RankProvider,
	cfg PartitionRefresherConfig,
	logger *logging.Logger,
	metrics RefreshMetrics,
) *PartitionRefresher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 1
	}
	if cfg.LadderMaxEntries < 0 {
		cfg.LadderMaxEntries = 0
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = cache.TTL()
	}

	r := &PartitionRefresher{
		cache:    cache,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  metricsOrNoop(metrics),
		sleep:    resilience.SleepContext,
	}
	r.retrier = resilience.NewRetrier(cfg.Retry, classifyProviderError,
		resilience.WithSleep(func(ctx context.Context, d time.Duration) error {
			return r.sleep(ctx, d)
		}),
		resilience.WithNotify(r.onRetryAttempt),
	)
	return r
}

// Refresh skips the provider when a fresh snapshot exists and force is false.
// Only ladder fetch and cache store failures fail the partition; enrichment
// failures degrade single entries to the unknown profile.
func (r *PartitionRefresher) Refresh(ctx context.Context, key leaderboard.PartitionKey, force bool) (RefreshResult, error) {
	key = key.Normalize()
	ctx, span := startUsecaseSpan(ctx, "usecase.PartitionRefresher.Refresh",
		attribute.String("partition", key.CacheKey()),
		attribute.Bool("force_refresh", force),
	)
	defer span.End()

	if err := key.Validate(); err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if !force {
		existing, err := r.cache.Get(ctx, key)
		if err != nil {
			recordSpanError(span, err)
			return RefreshResult{}, err
		}
		if r.cache.IsFresh(existing) {
			r.logger.DebugContext(ctx, "partition snapshot still fresh",
				"partition", key.CacheKey(),
				"expires_at", existing.ExpiresAt,
			)
			return RefreshResult{Skipped: true, ItemCount: existing.ItemCount}, nil
		}
	}

	entries, err := r.provider.FetchLadderPage(ctx, key)
	if err != nil {
		recordSpanError(span, err)
		return RefreshResult{}, fmt.Errorf("fetch ladder %s: %w", key.CacheKey(), err)
	}

	entries = rankEntries(entries, r.cfg.LadderMaxEntries)

	enriched, err := r.enrich(ctx, key, entries)
	if err != nil {
		recordSpanError(span, err)
		return RefreshResult{}, fmt.Errorf("enrich ladder %s: %w", key.CacheKey(), err)
	}

	stored, err := r.cache.Upsert(ctx, key, enriched, r.cfg.SnapshotTTL)
	if err != nil {
		recordSpanError(span, err)
		return RefreshResult{}, err
	}
	r.metrics.SetSnapshotItems(string(key.Game), key.Region, stored.ItemCount)

	return RefreshResult{ItemCount: stored.ItemCount}, nil
}

// rankEntries orders entries by league points, highest first, and applies the cap.
func rankEntries(entries []leaderboard.Entry, maxEntries int) []leaderboard.Entry {
	if len(entries) == 0 {
		return []leaderboard.Entry{}
	}

	out := make([]leaderboard.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LeaguePoints > out[j].LeaguePoints
	})
	if maxEntries > 0 && len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out
}

func (r *PartitionRefresher) enrich(ctx context.Context, key leaderboard.PartitionKey, entries []leaderboard.Entry) ([]leaderboard.EnrichedEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PartitionRefresher.enrich",
		attribute.Int("entries", len(entries)),
		attribute.Int("concurrency", workerpool.Workers(r.cfg.EnrichConcurrency, len(entries))),
	)
	defer span.End()

	return workerpool.Map(ctx, entries, r.cfg.EnrichConcurrency, func(ctx context.Context, entry leaderboard.Entry) (leaderboard.EnrichedEntry, error) {
		return r.enrichOne(ctx, key, entry)
	})
}

func (r *PartitionRefresher) enrichOne(ctx context.Context, key leaderboard.PartitionKey, entry leaderboard.Entry) (leaderboard.EnrichedEntry, error) {
	if entry.PlayerID == "" {
		r.metrics.IncEnrichmentFallback(string(key.Game), key.Region, "missing_player_id")
		return leaderboard.Enrich(entry, leaderboard.UnknownProfile()), nil
	}

	ref := leaderboard.PlayerRef{Game: key.Game, Region: key.Region, PlayerID: entry.PlayerID}
	result, err := resilience.CallWithFallback(ctx, r.retrier, leaderboard.UnknownProfile(), func(ctx context.Context) (leaderboard.Profile, error) {
		return r.provider.FetchPlayerEnrichment(ctx, ref)
	})
	if err != nil {
		return leaderboard.EnrichedEntry{}, err
	}

	if result.Fallback {
		reason := classifyProviderError(result.Cause).Class.String()
		r.metrics.IncEnrichmentFallback(string(key.Game), key.Region, reason)
		if leaderboard.IsNotFound(result.Cause) {
			r.logger.DebugContext(ctx, "player has no profile data",
				"partition", key.CacheKey(),
				"player_id", entry.PlayerID,
			)
		} else {
			r.logger.WarnContext(ctx, "player enrichment failed, using unknown profile",
				"partition", key.CacheKey(),
				"player_id", entry.PlayerID,
				"attempts", result.Attempts,
				"error", result.Cause,
			)
		}
	}

	return leaderboard.Enrich(entry, result.Value), nil
}

func (r *PartitionRefresher) onRetryAttempt(ctx context.Context, attempt resilience.RetryAttempt) {
	if attempt.Final {
		return
	}
	r.metrics.IncEnrichmentRetry(attempt.Decision.Class.String())
	r.logger.DebugContext(ctx, "retrying player enrichment",
		"attempt", attempt.Attempt,
		"class", attempt.Decision.Class.String(),
		"wait", attempt.Wait,
		"error", attempt.Err,
	)
}
