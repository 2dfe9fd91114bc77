package postgres

import (
	"database/sql"
	"time"

	qb "github.com/riskibarqy/ladder-cache/internal/platform/querybuilder"
)

const refreshRunsTable = "leaderboard_refresh_runs"

type refreshRunInsertModel struct {
	RunID        string     `db:"run_id"`
	Game         string     `db:"game"`
	Tier         string     `db:"tier"`
	Division     string     `db:"division"`
	ForceRefresh bool       `db:"force_refresh"`
	Status       string     `db:"status"`
	TotalRegions int        `db:"total_regions"`
	SuccessCount int        `db:"success_count"`
	FailureCount int        `db:"failure_count"`
	SkippedCount int        `db:"skipped_count"`
	Summary      string     `db:"summary"`
	LastError    *string    `db:"last_error"`
	StartedAt    time.Time  `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
	TraceID      *string    `db:"trace_id"`
	SpanID       *string    `db:"span_id"`
}

type refreshRunTableModel struct {
	RunID        string         `db:"run_id"`
	Game         string         `db:"game"`
	Tier         string         `db:"tier"`
	Division     string         `db:"division"`
	ForceRefresh bool           `db:"force_refresh"`
	Status       string         `db:"status"`
	TotalRegions int            `db:"total_regions"`
	SuccessCount int            `db:"success_count"`
	FailureCount int            `db:"failure_count"`
	SkippedCount int            `db:"skipped_count"`
	Summary      []byte         `db:"summary"`
	LastError    sql.NullString `db:"last_error"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
	TraceID      sql.NullString `db:"trace_id"`
	SpanID       sql.NullString `db:"span_id"`
}

var refreshRunColumns = qb.MustColumns(refreshRunTableModel{})
