package postgres

import (
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	qb "github.com/riskibarqy/ladder-cache/internal/platform/querybuilder"
)

const leaderboardSnapshotsTable = "leaderboard_snapshots"

var leaderboardSnapshotKeyColumns = []string{"game", "region", "queue", "tier", "division"}

type leaderboardSnapshotInsertModel struct {
	Game      string    `db:"game"`
	Region    string    `db:"region"`
	Queue     string    `db:"queue"`
	Tier      string    `db:"tier"`
	Division  string    `db:"division"`
	Payload   string    `db:"payload"`
	ItemCount int       `db:"item_count"`
	FetchedAt time.Time `db:"fetched_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

type leaderboardSnapshotTableModel struct {
	ID        int64     `db:"id"`
	Game      string    `db:"game"`
	Region    string    `db:"region"`
	Queue     string    `db:"queue"`
	Tier      string    `db:"tier"`
	Division  string    `db:"division"`
	Payload   []byte    `db:"payload"`
	ItemCount int       `db:"item_count"`
	FetchedAt time.Time `db:"fetched_at"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

var leaderboardSnapshotColumns = qb.MustColumns(leaderboardSnapshotTableModel{})

func leaderboardSnapshotInsertFromDomain(snapshot leaderboard.Snapshot) (leaderboardSnapshotInsertModel, error) {
	key := snapshot.Key.Normalize()
	payload := snapshot.Payload
	if payload == nil {
		payload = []leaderboard.EnrichedEntry{}
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return leaderboardSnapshotInsertModel{}, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	return leaderboardSnapshotInsertModel{
		Game:      string(key.Game),
		Region:    key.Region,
		Queue:     key.Queue,
		Tier:      key.Tier,
		Division:  key.Division,
		Payload:   string(raw),
		ItemCount: len(payload),
		FetchedAt: snapshot.FetchedAt.UTC(),
		ExpiresAt: snapshot.ExpiresAt.UTC(),
	}, nil
}

func leaderboardSnapshotFromRow(row leaderboardSnapshotTableModel) (leaderboard.Snapshot, error) {
	payload := []leaderboard.EnrichedEntry{}
	if len(row.Payload) > 0 {
		if err := sonic.Unmarshal(row.Payload, &payload); err != nil {
			return leaderboard.Snapshot{}, fmt.Errorf("unmarshal snapshot payload id=%d: %w", row.ID, err)
		}
	}

	return leaderboard.Snapshot{
		Key: leaderboard.PartitionKey{
			Game:     leaderboard.Game(row.Game),
			Region:   row.Region,
			Queue:    row.Queue,
			Tier:     row.Tier,
			Division: row.Division,
		},
		Payload:   payload,
		ItemCount: row.ItemCount,
		FetchedAt: row.FetchedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}
