package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// RunRefreshLeaderboardsJob runs the refresh synchronously and answers with
// the output document. Partition failures do not change the status code.
func (h *Handler) RunRefreshLeaderboardsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshLeaderboardsJob")
	defer span.End()

	if h.refresh == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req usecase.RefreshRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	resp, err := h.refresh.Execute(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "run refresh leaderboards job failed", "game", req.Game, "force_refresh", req.ForceRefresh, "error", err)
		writeError(ctx, w, err)
		return
	}

	invalidated := 0
	for _, game := range refreshedGames(resp.Summaries) {
		invalidated += h.leaderboards.Invalidate(ctx, game)
	}
	h.logger.InfoContext(ctx, "refresh leaderboards job finished",
		"summaries", len(resp.Summaries),
		"failure_count", resp.FailureCount(),
		"read_cache_invalidated", invalidated,
	)

	writeSuccess(ctx, w, http.StatusOK, resp)
}

func (h *Handler) ListRefreshRuns(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRefreshRuns")
	defer span.End()

	if h.runs == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh run store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	limit, err := parseRunLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	runs, err := h.runs.ListRecent(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list refresh runs failed", "limit", limit, "error", err)
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err))
		return
	}

	items := make([]refreshRunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, refreshRunToDTO(run))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func parseRunLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultRunListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxRunListLimit {
		return 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", usecase.ErrInvalidInput, maxRunListLimit)
	}
	return limit, nil
}

func refreshedGames(summaries []usecase.RefreshSummary) []leaderboard.Game {
	seen := make(map[leaderboard.Game]struct{}, len(summaries))
	out := make([]leaderboard.Game, 0, len(summaries))
	for _, s := range summaries {
		if _, ok := seen[s.Game]; ok {
			continue
		}
		seen[s.Game] = struct{}{}
		out = append(out, s.Game)
	}
	return out
}

func refreshRunToDTO(run refreshrun.Run) refreshRunDTO {
	dto := refreshRunDTO{
		RunID:        run.RunID,
		Game:         run.Game,
		Tier:         run.Tier,
		Division:     run.Division,
		ForceRefresh: run.ForceRefresh,
		Status:       string(run.Status),
		TotalRegions: run.TotalRegions,
		SuccessCount: run.SuccessCount,
		FailureCount: run.FailureCount,
		SkippedCount: run.SkippedCount,
		Error:        run.ErrorMessage,
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		TraceID:      run.TraceID,
	}
	if !run.FinishedAt.IsZero() {
		dto.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

type refreshRunDTO struct {
	RunID        string `json:"runId"`
	Game         string `json:"game"`
	Tier         string `json:"tier"`
	Division     string `json:"division"`
	ForceRefresh bool   `json:"forceRefresh"`
	Status       string `json:"status"`
	TotalRegions int    `json:"totalRegions"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	SkippedCount int    `json:"skippedCount"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"startedAt"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	TraceID      string `json:"traceId,omitempty"`
}
