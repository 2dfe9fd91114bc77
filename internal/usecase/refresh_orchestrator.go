package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Refresher refreshes a single partition.
type Refresher interface {
	Refresh(ctx context.Context, key leaderboard.PartitionKey, force bool) (RefreshResult, error)
}

type RefreshOutcome struct {
	Region     string `json:"region"`
	OK         bool   `json:"ok"`
	Skipped    bool   `json:"skipped"`
	ItemCount  int    `json:"itemCount"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
	Status     int    `json:"status,omitempty"`
}

type RefreshSummary struct {
	RunID        string           `json:"runId,omitempty"`
	Game         leaderboard.Game `json:"game"`
	Tier         string           `json:"tier"`
	Division     string           `json:"division"`
	Queue        string           `json:"queue"`
	TotalRegions int              `json:"totalRegions"`
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	SkippedCount int              `json:"skippedCount"`
	DurationMs   int64            `json:"durationMs"`
	Results      []RefreshOutcome `json:"results"`
}

// GamePlan lists the partitions of one game processed in a single pass.
type GamePlan struct {
	Game         leaderboard.Game
	Regions      []string
	Queue        string
	Tier         string
	Division     string
	ForceRefresh bool
	RegionDelay  time.Duration
}

// RefreshOrchestrator walks partitions strictly one after another so the
// enrichment fan-out of a single partition is the only concurrent load on
// the provider.
type RefreshOrchestrator struct {
	refresher Refresher
	runs      refreshrun.Repository
	logger    *logging.Logger
	metrics   RefreshMetrics
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	newRunID  func() string
}

func NewRefreshOrchestrator(
	refresher Refresher,
	runs refreshrun.Repository,
	logger *logging.Logger,
	metrics RefreshMetrics,
) *RefreshOrchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &RefreshOrchestrator{
		refresher: refresher,
		runs:      runs,
		logger:    logger,
		metrics:   metricsOrNoop(metrics),
		now:       time.Now,
		sleep:     resilience.SleepContext,
		newRunID:  uuid.NewString,
	}
}

// Run processes every plan to completion, one game after another.
func (o *RefreshOrchestrator) Run(ctx context.Context, plans []GamePlan) []RefreshSummary {
	summaries := make([]RefreshSummary, 0, len(plans))
	for _, plan := range plans {
		summaries = append(summaries, o.RunGame(ctx, plan))
	}
	return summaries
}

// RunGame never returns early: a failed partition is recorded and the loop
// moves on. Once ctx ends, every remaining region is recorded as failed.
func (o *RefreshOrchestrator) RunGame(ctx context.Context, plan GamePlan) RefreshSummary {
	tier := strings.ToUpper(strings.TrimSpace(plan.Tier))
	division := strings.ToUpper(strings.TrimSpace(plan.Division))

	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshOrchestrator.RunGame",
		attribute.String("game", string(plan.Game)),
		attribute.String("tier", tier),
		attribute.Int("regions", len(plan.Regions)),
	)
	defer span.End()

	startedAt := o.now()
	summary := RefreshSummary{
		RunID:        o.newRunID(),
		Game:         plan.Game,
		Tier:         tier,
		Division:     division,
		Queue:        plan.Queue,
		TotalRegions: len(plan.Regions),
		Results:      make([]RefreshOutcome, 0, len(plan.Regions)),
	}

	o.recordRun(ctx, summary, plan, refreshrun.StatusRunning, startedAt, time.Time{})
	o.logger.InfoContext(ctx, "leaderboard refresh started",
		"run_id", summary.RunID,
		"game", plan.Game,
		"tier", tier,
		"division", division,
		"regions", len(plan.Regions),
		"force_refresh", plan.ForceRefresh,
	)

	for i, region := range plan.Regions {
		if err := ctx.Err(); err != nil {
			summary.Results = append(summary.Results, failedOutcome(region, err, 0))
			continue
		}

		key := leaderboard.PartitionKey{
			Game:     plan.Game,
			Region:   region,
			Queue:    plan.Queue,
			Tier:     tier,
			Division: division,
		}
		outcome := o.refreshPartition(ctx, key, plan.ForceRefresh)
		summary.Results = append(summary.Results, outcome)

		if i < len(plan.Regions)-1 && plan.RegionDelay > 0 {
			if err := o.sleep(ctx, plan.RegionDelay); err != nil {
				o.logger.WarnContext(ctx, "region pacing interrupted", "run_id", summary.RunID, "error", err)
			}
		}
	}

	for _, outcome := range summary.Results {
		switch {
		case !outcome.OK:
			summary.FailureCount++
		case outcome.Skipped:
			summary.SkippedCount++
		default:
			summary.SuccessCount++
		}
	}
	finishedAt := o.now()
	elapsed := finishedAt.Sub(startedAt)
	summary.DurationMs = elapsed.Milliseconds()

	status := refreshrun.StatusFor(summary.SuccessCount, summary.FailureCount, summary.SkippedCount)
	o.recordRun(ctx, summary, plan, status, startedAt, finishedAt)
	o.metrics.ObserveRun(string(plan.Game), summary.SuccessCount, summary.FailureCount, summary.SkippedCount, elapsed)

	o.logger.InfoContext(ctx, "leaderboard refresh finished",
		"run_id", summary.RunID,
		"game", plan.Game,
		"status", status,
		"success_count", summary.SuccessCount,
		"failure_count", summary.FailureCount,
		"skipped_count", summary.SkippedCount,
		"duration", elapsed,
	)
	return summary
}

func (o *RefreshOrchestrator) refreshPartition(ctx context.Context, key leaderboard.PartitionKey, force bool) RefreshOutcome {
	started := o.now()
	result, err := o.refresher.Refresh(ctx, key, force)
	elapsed := o.now().Sub(started)

	if err != nil {
		outcome := failedOutcome(key.Region, err, elapsed)
		o.metrics.ObservePartition(string(key.Game), key.Region, "failed", elapsed)
		o.logger.ErrorContext(ctx, "partition refresh failed",
			"partition", key.CacheKey(),
			"status", outcome.Status,
			"duration", elapsed,
			"error", err,
		)
		return outcome
	}

	status := "success"
	if result.Skipped {
		status = "skipped"
	}
	o.metrics.ObservePartition(string(key.Game), key.Region, status, elapsed)
	o.logger.InfoContext(ctx, "partition refresh done",
		"partition", key.CacheKey(),
		"skipped", result.Skipped,
		"item_count", result.ItemCount,
		"duration", elapsed,
	)
	return RefreshOutcome{
		Region:     key.Region,
		OK:         true,
		Skipped:    result.Skipped,
		ItemCount:  result.ItemCount,
		DurationMs: elapsed.Milliseconds(),
	}
}

func failedOutcome(region string, err error, elapsed time.Duration) RefreshOutcome {
	return RefreshOutcome{
		Region:     region,
		OK:         false,
		DurationMs: elapsed.Milliseconds(),
		Error:      err.Error(),
		Status:     StatusHint(err),
	}
}

func (o *RefreshOrchestrator) recordRun(ctx context.Context, summary RefreshSummary, plan GamePlan, status refreshrun.Status, startedAt, finishedAt time.Time) {
	if o.runs == nil {
		return
	}

	run := refreshrun.Run{
		RunID:        summary.RunID,
		Game:         string(plan.Game),
		Tier:         summary.Tier,
		Division:     summary.Division,
		ForceRefresh: plan.ForceRefresh,
		Status:       status,
		TotalRegions: summary.TotalRegions,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		SkippedCount: summary.SkippedCount,
		StartedAt:    startedAt.UTC(),
		FinishedAt:   finishedAt.UTC(),
	}
	if !finishedAt.IsZero() {
		run.Summary = map[string]any{
			"queue":      summary.Queue,
			"durationMs": summary.DurationMs,
			"results":    summary.Results,
		}
	}
	if status == refreshrun.StatusFailed && len(summary.Results) > 0 {
		run.ErrorMessage = summary.Results[len(summary.Results)-1].Error
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		run.TraceID = spanCtx.TraceID().String()
		run.SpanID = spanCtx.SpanID().String()
	}

	// The audit row must outlive a cancelled run context.
	if err := o.runs.UpsertRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.WarnContext(ctx, "failed to record refresh run",
			"run_id", run.RunID,
			"status", status,
			"error", err,
		)
	}
}
