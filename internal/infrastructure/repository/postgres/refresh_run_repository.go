package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
	qb "github.com/riskibarqy/ladder-cache/internal/platform/querybuilder"
)

type RefreshRunRepository struct {
	db *sqlx.DB
}

func NewRefreshRunRepository(db *sqlx.DB) *RefreshRunRepository {
	return &RefreshRunRepository{db: db}
}

func (r *RefreshRunRepository) UpsertRun(ctx context.Context, run refreshrun.Run) error {
	runID := strings.TrimSpace(run.RunID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	startedAt := run.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	summaryJSON, err := marshalPayload(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal refresh run summary: %w", err)
	}

	model := refreshRunInsertModel{
		RunID:        runID,
		Game:         run.Game,
		Tier:         run.Tier,
		Division:     run.Division,
		ForceRefresh: run.ForceRefresh,
		Status:       string(run.Status),
		TotalRegions: run.TotalRegions,
		SuccessCount: run.SuccessCount,
		FailureCount: run.FailureCount,
		SkippedCount: run.SkippedCount,
		Summary:      summaryJSON,
		LastError:    optionalString(run.ErrorMessage),
		StartedAt:    startedAt,
		FinishedAt:   optionalTime(run.FinishedAt),
		TraceID:      optionalString(run.TraceID),
		SpanID:       optionalString(run.SpanID),
	}

	builder, err := qb.InsertModel(refreshRunsTable, model)
	if err != nil {
		return fmt.Errorf("build upsert refresh run query: %w", err)
	}
	query, args, err := builder.
		OnConflictUpdate([]string{"run_id"}, "started_at", "trace_id", "span_id").
		Set("updated_at = NOW()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert refresh run query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert refresh run run_id=%s status=%s: %w", runID, run.Status, err)
	}
	return nil
}

func (r *RefreshRunRepository) ListRecent(ctx context.Context, limit int) ([]refreshrun.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := qb.Select(refreshRunColumns...).
		From(refreshRunsTable).
		OrderBy("started_at DESC", "run_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list refresh runs query: %w", err)
	}

	var rows []refreshRunTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list refresh runs: %w", err)
	}

	out := make([]refreshrun.Run, 0, len(rows))
	for _, row := range rows {
		run, err := refreshRunFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func refreshRunFromRow(row refreshRunTableModel) (refreshrun.Run, error) {
	var summary map[string]any
	if len(row.Summary) > 0 {
		if err := sonic.Unmarshal(row.Summary, &summary); err != nil {
			return refreshrun.Run{}, fmt.Errorf("unmarshal refresh run summary run_id=%s: %w", row.RunID, err)
		}
	}

	return refreshrun.Run{
		RunID:        row.RunID,
		Game:         row.Game,
		Tier:         row.Tier,
		Division:     row.Division,
		ForceRefresh: row.ForceRefresh,
		Status:       refreshrun.Status(row.Status),
		TotalRegions: row.TotalRegions,
		SuccessCount: row.SuccessCount,
		FailureCount: row.FailureCount,
		SkippedCount: row.SkippedCount,
		Summary:      summary,
		ErrorMessage: strings.TrimSpace(row.LastError.String),
		StartedAt:    row.StartedAt.UTC(),
		FinishedAt:   nullTimeToTime(row.FinishedAt),
		TraceID:      row.TraceID.String,
		SpanID:       row.SpanID.String,
	}, nil
}
