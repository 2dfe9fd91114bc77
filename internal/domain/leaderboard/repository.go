package leaderboard

import "context"

// SnapshotRepository persists at most one snapshot per normalized partition key.
type SnapshotRepository interface {
	Get(ctx context.Context, key PartitionKey) (Snapshot, bool, error)
	Upsert(ctx context.Context, snapshot Snapshot) (Snapshot, error)
}

// PlayerRef addresses one player for enrichment.
type PlayerRef struct {
	Game     Game
	Region   string
	PlayerID string
}

// RankProvider is the external ladder source. FetchPlayerEnrichment must be
// safe to call concurrently; callers bound the concurrency.
type RankProvider interface {
	FetchLadderPage(ctx context.Context, key PartitionKey) ([]Entry, error)
	FetchPlayerEnrichment(ctx context.Context, ref PlayerRef) (Profile, error)
}
