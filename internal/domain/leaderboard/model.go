package leaderboard

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSnapshotTTL is how long a refreshed partition stays fresh.
const DefaultSnapshotTTL = 18 * time.Hour

type Game string

const (
	GameLoL Game = "lol"
	GameTFT Game = "tft"
)

// Games lists every supported game in refresh order.
func Games() []Game {
	return []Game{GameLoL, GameTFT}
}

func ParseGame(raw string) (Game, error) {
	switch Game(strings.ToLower(strings.TrimSpace(raw))) {
	case GameLoL:
		return GameLoL, nil
	case GameTFT:
		return GameTFT, nil
	default:
		return "", fmt.Errorf("unsupported game %q", raw)
	}
}

// Apex tiers are single leagues without a division axis.
var apexTiers = map[string]struct{}{
	"CHALLENGER":  {},
	"GRANDMASTER": {},
	"MASTER":      {},
}

func IsApexTier(tier string) bool {
	_, ok := apexTiers[strings.ToUpper(strings.TrimSpace(tier))]
	return ok
}

// PartitionKey identifies one leaderboard slice.
type PartitionKey struct {
	Game     Game   `json:"game"`
	Region   string `json:"region"`
	Queue    string `json:"queue"`
	Tier     string `json:"tier"`
	Division string `json:"division"`
}

// Normalize returns the canonical form used for cache rows: game lowercased,
// every other field uppercased and trimmed. Keys that differ only in case
// normalize to the same value.
func (k PartitionKey) Normalize() PartitionKey {
	return PartitionKey{
		Game:     Game(strings.ToLower(strings.TrimSpace(string(k.Game)))),
		Region:   strings.ToUpper(strings.TrimSpace(k.Region)),
		Queue:    strings.ToUpper(strings.TrimSpace(k.Queue)),
		Tier:     strings.ToUpper(strings.TrimSpace(k.Tier)),
		Division: strings.ToUpper(strings.TrimSpace(k.Division)),
	}
}

func (k PartitionKey) Validate() error {
	n := k.Normalize()
	if _, err := ParseGame(string(n.Game)); err != nil {
		return err
	}
	if n.Region == "" {
		return fmt.Errorf("region is required")
	}
	if n.Tier == "" {
		return fmt.Errorf("tier is required")
	}
	return nil
}

// CacheKey renders the normalized key as a single string.
func (k PartitionKey) CacheKey() string {
	n := k.Normalize()
	return strings.Join([]string{string(n.Game), n.Region, n.Queue, n.Tier, n.Division}, ":")
}

func (k PartitionKey) String() string {
	return k.CacheKey()
}

// Entry is one raw ladder row as returned by the provider.
type Entry struct {
	PlayerID     string         `json:"playerId"`
	LeaguePoints int            `json:"leaguePoints"`
	Wins         int            `json:"wins"`
	Losses       int            `json:"losses"`
	Rank         string         `json:"rank,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

const (
	UnknownDisplayName = "Unknown"
	UnknownDisplayTag  = "Unknown"
)

// Profile is the presentation data resolved for one player.
type Profile struct {
	DisplayName string `json:"displayName"`
	DisplayTag  string `json:"displayTag"`
	IconID      *int   `json:"iconId,omitempty"`
}

// UnknownProfile is the sentinel used when enrichment could not resolve a player.
func UnknownProfile() Profile {
	return Profile{
		DisplayName: UnknownDisplayName,
		DisplayTag:  UnknownDisplayTag,
	}
}

func (p Profile) IsUnknown() bool {
	return p.DisplayName == UnknownDisplayName && p.DisplayTag == UnknownDisplayTag && p.IconID == nil
}

// EnrichedEntry is a ladder row merged with its player's profile data.
type EnrichedEntry struct {
	Entry
	ProfileData Profile `json:"profileData"`
}

func Enrich(entry Entry, profile Profile) EnrichedEntry {
	return EnrichedEntry{Entry: entry, ProfileData: profile}
}

// Snapshot is the persisted, enriched payload of one partition.
type Snapshot struct {
	Key       PartitionKey
	Payload   []EnrichedEntry
	ItemCount int
	FetchedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// NewSnapshot builds a snapshot whose expiry is always fetchedAt + ttl.
func NewSnapshot(key PartitionKey, payload []EnrichedEntry, fetchedAt time.Time, ttl time.Duration) Snapshot {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if payload == nil {
		payload = []EnrichedEntry{}
	}
	return Snapshot{
		Key:       key.Normalize(),
		Payload:   payload,
		ItemCount: len(payload),
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
		UpdatedAt: fetchedAt,
	}
}

// FreshAt reports whether the snapshot's expiry is strictly after now.
func (s *Snapshot) FreshAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
