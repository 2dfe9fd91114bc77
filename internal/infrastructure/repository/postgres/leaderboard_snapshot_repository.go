package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	qb "github.com/riskibarqy/ladder-cache/internal/platform/querybuilder"
)

type LeaderboardSnapshotRepository struct {
	db *sqlx.DB
}

func NewLeaderboardSnapshotRepository(db *sqlx.DB) *LeaderboardSnapshotRepository {
	return &LeaderboardSnapshotRepository{db: db}
}

func (r *LeaderboardSnapshotRepository) Get(ctx context.Context, key leaderboard.PartitionKey) (leaderboard.Snapshot, bool, error) {
	key = key.Normalize()
	query, args, err := qb.Select(leaderboardSnapshotColumns...).
		From(leaderboardSnapshotsTable).
		Where(
			qb.Eq("game", string(key.Game)),
			qb.Eq("region", key.Region),
			qb.Eq("queue", key.Queue),
			qb.Eq("tier", key.Tier),
			qb.Eq("division", key.Division),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return leaderboard.Snapshot{}, false, fmt.Errorf("build get leaderboard snapshot query: %w", err)
	}

	var row leaderboardSnapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isPreparedStatementConflict(err) {
			err = r.getInline(ctx, &row, query, args)
		}
		if isNotFound(err) {
			return leaderboard.Snapshot{}, false, nil
		}
		if err != nil {
			return leaderboard.Snapshot{}, false, fmt.Errorf("get leaderboard snapshot %s: %w", key.CacheKey(), err)
		}
	}

	snapshot, err := leaderboardSnapshotFromRow(row)
	if err != nil {
		return leaderboard.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (r *LeaderboardSnapshotRepository) getInline(ctx context.Context, dest any, query string, args []any) error {
	inlined, err := inlineArgs(query, args)
	if err != nil {
		return err
	}
	return r.db.GetContext(ctx, dest, inlined)
}

// Upsert relies on the unique key tuple so concurrent writers converge on one row.
func (r *LeaderboardSnapshotRepository) Upsert(ctx context.Context, snapshot leaderboard.Snapshot) (leaderboard.Snapshot, error) {
	if err := snapshot.Key.Validate(); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("invalid snapshot key: %w", err)
	}

	model, err := leaderboardSnapshotInsertFromDomain(snapshot)
	if err != nil {
		return leaderboard.Snapshot{}, err
	}

	builder, err := qb.InsertModel(leaderboardSnapshotsTable, model)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("build upsert leaderboard snapshot query: %w", err)
	}
	query, args, err := builder.
		OnConflictUpdate(leaderboardSnapshotKeyColumns).
		Set("updated_at = NOW()").
		Returning(leaderboardSnapshotColumns...).
		ToSQL()
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("build upsert leaderboard snapshot query: %w", err)
	}

	var row leaderboardSnapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("upsert leaderboard snapshot %s: %w", snapshot.Key.CacheKey(), err)
	}

	return leaderboardSnapshotFromRow(row)
}
