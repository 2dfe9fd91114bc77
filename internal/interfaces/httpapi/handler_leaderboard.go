package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
)

const (
	headerCacheStatus = "X-Cache-Status"
	headerFetchedAt   = "X-Snapshot-Fetched-At"
	headerExpiresAt   = "X-Snapshot-Expires-At"
)

// GetLeaderboard serves the cached snapshot of one partition. It never calls
// the provider: absent and expired rows both answer 404 and differ only in
// X-Cache-Status.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	q := r.URL.Query()
	req := leaderboardQueryRequest{
		Game:     r.PathValue("game"),
		Region:   r.PathValue("region"),
		Queue:    q.Get("queue"),
		Tier:     q.Get("tier"),
		Division: q.Get("division"),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.leaderboards.Get(ctx, usecase.LeaderboardQuery{
		Game:     req.Game,
		Region:   req.Region,
		Queue:    req.Queue,
		Tier:     req.Tier,
		Division: req.Division,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "get leaderboard failed", "game", req.Game, "region", req.Region, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSnapshotHeaders(w, view, h.now())
	if !view.Usable() {
		writeError(ctx, w, fmt.Errorf("%w: no usable cached leaderboard for %s (%s)", usecase.ErrNotFound, view.Key.CacheKey(), view.Status))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaderboardToDTO(view))
}

func writeSnapshotHeaders(w http.ResponseWriter, view usecase.LeaderboardView, now time.Time) {
	header := w.Header()
	header.Set(headerCacheStatus, string(view.Status))
	if view.Snapshot != nil {
		header.Set(headerFetchedAt, view.Snapshot.FetchedAt.UTC().Format(time.RFC3339))
		header.Set(headerExpiresAt, view.Snapshot.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if !view.Usable() {
		header.Set("Cache-Control", "no-store")
		return
	}
	maxAge := int64(view.MaxAge(now) / time.Second)
	header.Set("Cache-Control", "public, max-age="+strconv.FormatInt(maxAge, 10))
}

func leaderboardToDTO(view usecase.LeaderboardView) leaderboardDTO {
	snap := view.Snapshot
	entries := snap.Payload
	if entries == nil {
		entries = []leaderboard.EnrichedEntry{}
	}
	return leaderboardDTO{
		Game:      string(snap.Key.Game),
		Region:    snap.Key.Region,
		Queue:     snap.Key.Queue,
		Tier:      snap.Key.Tier,
		Division:  snap.Key.Division,
		ItemCount: snap.ItemCount,
		FetchedAt: snap.FetchedAt.UTC().Format(time.RFC3339),
		ExpiresAt: snap.ExpiresAt.UTC().Format(time.RFC3339),
		Entries:   entries,
	}
}

type leaderboardQueryRequest struct {
	Game     string `validate:"required,alpha,max=8"`
	Region   string `validate:"required,alphanum,max=8"`
	Queue    string `validate:"omitempty,max=64"`
	Tier     string `validate:"omitempty,alpha,max=16"`
	Division string `validate:"omitempty,oneof=I II III IV i ii iii iv"`
}

type leaderboardDTO struct {
	Game      string                      `json:"game"`
	Region    string                      `json:"region"`
	Queue     string                      `json:"queue"`
	Tier      string                      `json:"tier"`
	Division  string                      `json:"division"`
	ItemCount int                         `json:"itemCount"`
	FetchedAt string                      `json:"fetchedAt"`
	ExpiresAt string                      `json:"expiresAt"`
	Entries   []leaderboard.EnrichedEntry `json:"entries"`
}
