package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
)

const GameAll = "all"

// RefreshRequest is the invocation contract shared by the CLI and the
// internal HTTP trigger.
type RefreshRequest struct {
	Game          string `json:"game" validate:"omitempty,oneof=all lol tft ALL LOL TFT"`
	Tier          string `json:"tier" validate:"omitempty,alpha,max=16"`
	Division      string `json:"division" validate:"omitempty,oneof=I II III IV i ii iii iv"`
	ForceRefresh  bool   `json:"forceRefresh"`
	LoLRegions    string `json:"lolRegions" validate:"omitempty,max=512"`
	TFTRegions    string `json:"tftRegions" validate:"omitempty,max=512"`
	RegionDelayMs *int64 `json:"regionDelayMs" validate:"omitempty,min=0,max=60000"`
}

type RefreshResponse struct {
	OK            bool             `json:"ok"`
	RanAt         time.Time        `json:"ranAt"`
	RegionDelayMs int64            `json:"regionDelayMs"`
	ForceRefresh  bool             `json:"forceRefresh"`
	Summaries     []RefreshSummary `json:"summaries"`
}

// FailureCount sums failed partitions across every summary.
func (r RefreshResponse) FailureCount() int {
	total := 0
	for _, s := range r.Summaries {
		total += s.FailureCount
	}
	return total
}

type RefreshServiceConfig struct {
	ProviderEnabled bool
	DefaultTier     string
	DefaultDivision string
	LoLRegions      []string
	TFTRegions      []string
	LoLQueue        string
	TFTQueue        string
	RegionDelay     time.Duration
	RunTimeout      time.Duration
}

// RefreshService resolves a RefreshRequest into game plans and runs them.
type RefreshService struct {
	orchestrator *RefreshOrchestrator
	cfg          RefreshServiceConfig
	validator    *validator.Validate
	logger       *logging.Logger
	now          func() time.Time
}

func NewRefreshService(orchestrator *RefreshOrchestrator, cfg RefreshServiceConfig, logger *logging.Logger) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.DefaultTier) == "" {
		cfg.DefaultTier = "CHALLENGER"
	}
	if strings.TrimSpace(cfg.DefaultDivision) == "" {
		cfg.DefaultDivision = "I"
	}
	if cfg.RegionDelay < 0 {
		cfg.RegionDelay = 0
	}

	return &RefreshService{
		orchestrator: orchestrator,
		cfg:          cfg,
		validator:    validator.New(),
		logger:       logger,
		now:          time.Now,
	}
}

// Execute returns an error only for invalid input or configuration. Partition
// failures are reported inside the summaries.
func (s *RefreshService) Execute(ctx context.Context, req RefreshRequest) (RefreshResponse, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Execute")
	defer span.End()

	if err := s.validator.StructCtx(ctx, req); err != nil {
		return RefreshResponse{}, fmt.Errorf("%w: validation failed: %v", ErrInvalidInput, err)
	}
	if !s.cfg.ProviderEnabled || s.orchestrator == nil {
		err := fmt.Errorf("%w: rank provider is not configured", ErrConfiguration)
		recordSpanError(span, err)
		return RefreshResponse{}, err
	}

	plans, delay, err := s.plan(req)
	if err != nil {
		return RefreshResponse{}, err
	}

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	ranAt := s.now().UTC()
	summaries := s.orchestrator.Run(ctx, plans)

	resp := RefreshResponse{
		OK:            true,
		RanAt:         ranAt,
		RegionDelayMs: delay.Milliseconds(),
		ForceRefresh:  req.ForceRefresh,
		Summaries:     summaries,
	}
	if failures := resp.FailureCount(); failures > 0 {
		s.logger.WarnContext(ctx, "leaderboard refresh finished with failures", "failure_count", failures)
	}
	return resp, nil
}

func (s *RefreshService) plan(req RefreshRequest) ([]GamePlan, time.Duration, error) {
	games, err := resolveGames(req.Game)
	if err != nil {
		return nil, 0, err
	}

	tier := strings.ToUpper(strings.TrimSpace(req.Tier))
	if tier == "" {
		tier = s.cfg.DefaultTier
	}
	division := strings.ToUpper(strings.TrimSpace(req.Division))
	if division == "" {
		division = s.cfg.DefaultDivision
	}

	delay := s.cfg.RegionDelay
	if req.RegionDelayMs != nil {
		delay = time.Duration(*req.RegionDelayMs) * time.Millisecond
	}

	plans := make([]GamePlan, 0, len(games))
	for _, game := range games {
		plan := GamePlan{
			Game:         game,
			Tier:         tier,
			Division:     division,
			ForceRefresh: req.ForceRefresh,
			RegionDelay:  delay,
		}
		switch game {
		case leaderboard.GameLoL:
			plan.Queue = s.cfg.LoLQueue
			plan.Regions = resolveRegions(req.LoLRegions, s.cfg.LoLRegions)
		case leaderboard.GameTFT:
			plan.Queue = s.cfg.TFTQueue
			plan.Regions = resolveRegions(req.TFTRegions, s.cfg.TFTRegions)
		}
		if len(plan.Regions) == 0 {
			return nil, 0, fmt.Errorf("%w: no regions configured for %s", ErrConfiguration, game)
		}
		plans = append(plans, plan)
	}
	return plans, delay, nil
}

func resolveGames(raw string) ([]leaderboard.Game, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == GameAll {
		return leaderboard.Games(), nil
	}
	game, err := leaderboard.ParseGame(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return []leaderboard.Game{game}, nil
}

// resolveRegions prefers the comma separated override and drops duplicates
// after uppercasing.
func resolveRegions(override string, defaults []string) []string {
	source := defaults
	if strings.TrimSpace(override) != "" {
		source = strings.Split(override, ",")
	}

	seen := make(map[string]struct{}, len(source))
	out := make([]string, 0, len(source))
	for _, item := range source {
		region := strings.ToUpper(strings.TrimSpace(item))
		if region == "" {
			continue
		}
		if _, ok := seen[region]; ok {
			continue
		}
		seen[region] = struct{}{}
		out = append(out, region)
	}
	return out
}
