package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/ladder-cache/external/riot"
	"github.com/riskibarqy/ladder-cache/internal/config"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
	"github.com/riskibarqy/ladder-cache/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/ladder-cache/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/ladder-cache/internal/interfaces/httpapi"
	"github.com/riskibarqy/ladder-cache/internal/observability"
	"github.com/riskibarqy/ladder-cache/internal/platform/cache"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const dbPingTimeout = 5 * time.Second

// App holds the wired dependencies shared by the API server and the refresh
// command.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	db      *sqlx.DB
	metrics *observability.Metrics
	riot    *riot.Client

	Leaderboards *usecase.LeaderboardQueryService
	Refresh      *usecase.RefreshService
	Runs         refreshrun.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	if cfg.MetricsEnabled {
		a.metrics = observability.NewMetrics()
	}

	snapshots, runs, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	a.Runs = runs

	snapshotCache := usecase.NewSnapshotCache(snapshots, cfg.Refresh.SnapshotTTL)

	var readCache *cache.Store[*leaderboard.Snapshot]
	if cfg.CacheEnabled {
		readCache = cache.NewStore[*leaderboard.Snapshot](cfg.CacheTTL)
	}
	a.Leaderboards = usecase.NewLeaderboardQueryService(snapshotCache, readCache, usecase.LeaderboardQueryConfig{
		LoLQueue:        cfg.Refresh.LoLQueue,
		TFTQueue:        cfg.Refresh.TFTQueue,
		DefaultTier:     cfg.Refresh.DefaultTier,
		DefaultDivision: cfg.Refresh.DefaultDivision,
	})

	var orchestrator *usecase.RefreshOrchestrator
	if cfg.Riot.Enabled {
		client, err := a.newRiotClient()
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.riot = client

		refresher := usecase.NewPartitionRefresher(snapshotCache, client, usecase.PartitionRefresherConfig{
			EnrichConcurrency: cfg.Refresh.EnrichConcurrency,
			LadderMaxEntries:  cfg.Refresh.LadderMaxEntries,
			SnapshotTTL:       cfg.Refresh.SnapshotTTL,
			Retry: resilience.RetryConfig{
				MaxRetries:        cfg.Refresh.EnrichMaxRetries,
				BaseDelay:         cfg.Refresh.RetryBaseDelay,
				MaxDelay:          cfg.Refresh.RetryMaxDelay,
				RateLimitCooldown: cfg.Refresh.RateLimitCooldown,
			},
		}, logger.Named("refresher"), a.refreshMetrics())
		orchestrator = usecase.NewRefreshOrchestrator(refresher, runs, logger.Named("orchestrator"), a.refreshMetrics())
	} else {
		logger.Warn("rank provider disabled", "reason", "RIOT_ENABLED=false")
	}

	a.Refresh = usecase.NewRefreshService(orchestrator, usecase.RefreshServiceConfig{
		ProviderEnabled: cfg.Riot.Enabled,
		DefaultTier:     cfg.Refresh.DefaultTier,
		DefaultDivision: cfg.Refresh.DefaultDivision,
		LoLRegions:      cfg.Refresh.LoLRegions,
		TFTRegions:      cfg.Refresh.TFTRegions,
		LoLQueue:        cfg.Refresh.LoLQueue,
		TFTQueue:        cfg.Refresh.TFTQueue,
		RegionDelay:     cfg.Refresh.RegionDelay,
		RunTimeout:      cfg.Refresh.RunTimeout,
	}, logger.Named("refresh"))

	return a, nil
}

// NewHTTPServer builds the API server around the wired services.
func (a *App) NewHTTPServer() (*http.Server, error) {
	if a.cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var circuits httpapi.CircuitReporter
	if a.riot != nil {
		circuits = a.riot
	}
	handler := httpapi.NewHandler(a.Leaderboards, a.Refresh, a.Runs, circuits, a.logger.Named("http"))

	opts := httpapi.RouterOptions{
		Logger:             a.logger,
		InternalJobToken:   a.cfg.InternalJobToken,
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		SwaggerEnabled:     a.cfg.SwaggerEnabled,
	}
	if a.metrics != nil {
		opts.Metrics = a.metrics
		opts.MetricsHandler = a.metrics.Handler()
	}
	if a.cfg.InternalJobToken == "" {
		a.logger.Warn("internal job routes disabled", "reason", "INTERNAL_JOB_TOKEN empty")
	}

	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, opts),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) openStores(ctx context.Context) (leaderboard.SnapshotRepository, refreshrun.Repository, error) {
	if a.cfg.SnapshotStore == config.SnapshotStoreMemory {
		a.logger.Warn("snapshot store is in-memory; snapshots are lost on exit")
		return memory.NewSnapshotRepository(), memory.NewRefreshRunRepository(), nil
	}

	db, err := openDB(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	a.logger.Info("database connected", "db_name", dbNameFromURL(a.cfg.DBURL))
	return postgres.NewLeaderboardSnapshotRepository(db), postgres.NewRefreshRunRepository(db), nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", DatabaseURL(cfg),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (a *App) newRiotClient() (*riot.Client, error) {
	clientCfg := riot.ClientConfig{
		APIKey:  a.cfg.Riot.APIKey,
		BaseURL: a.cfg.Riot.BaseURL,
		Timeout: a.cfg.Riot.Timeout,
		Logger:  a.logger.Named("riot"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          a.cfg.Riot.CircuitEnabled,
			FailureThreshold: a.cfg.Riot.CircuitFailureCount,
			OpenTimeout:      a.cfg.Riot.CircuitOpenTimeout,
			HalfOpenMaxReq:   a.cfg.Riot.CircuitHalfOpenMaxReq,
		},
	}
	if a.metrics != nil {
		clientCfg.OnCircuitChange = a.metrics.SetCircuitState
	}
	return riot.NewClient(clientCfg)
}

// refreshMetrics keeps a nil *Metrics from becoming a non-nil interface.
func (a *App) refreshMetrics() usecase.RefreshMetrics {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}
