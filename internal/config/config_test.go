package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("RIOT_ENABLED", "true")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "false")
}

func TestLoad_AppEnvValidation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_RiotKeyRequiredWhenEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RIOT_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when RIOT_ENABLED=true without RIOT_API_KEY")
	}

	t.Setenv("RIOT_ENABLED", "false")
	if _, err := Load(); err != nil {
		t.Fatalf("expected disabled provider to skip key check, got %v", err)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev/1"`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_RefreshDefaults(t *testing.T) {
	setBaseEnv(t)
	for _, key := range []string{
		"REFRESH_SNAPSHOT_TTL", "REFRESH_ENRICH_CONCURRENCY", "REFRESH_ENRICH_MAX_RETRIES",
		"REFRESH_RATE_LIMIT_COOLDOWN", "REFRESH_LADDER_MAX_ENTRIES", "REFRESH_REGION_DELAY",
		"LOL_REGIONS", "TFT_REGIONS", "LOL_QUEUE", "TFT_QUEUE", "SNAPSHOT_STORE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	r := cfg.Refresh
	if r.SnapshotTTL != 18*time.Hour {
		t.Fatalf("unexpected SnapshotTTL: %s", r.SnapshotTTL)
	}
	if r.EnrichConcurrency != 8 || r.EnrichMaxRetries != 2 {
		t.Fatalf("unexpected enrichment defaults: concurrency=%d retries=%d", r.EnrichConcurrency, r.EnrichMaxRetries)
	}
	if r.RateLimitCooldown != 10*time.Second {
		t.Fatalf("unexpected RateLimitCooldown: %s", r.RateLimitCooldown)
	}
	if r.LadderMaxEntries != 200 {
		t.Fatalf("unexpected LadderMaxEntries: %d", r.LadderMaxEntries)
	}
	if r.RegionDelay != time.Second {
		t.Fatalf("unexpected RegionDelay: %s", r.RegionDelay)
	}
	if len(r.LoLRegions) == 0 || r.LoLRegions[0] != "NA1" {
		t.Fatalf("unexpected default LoL regions: %v", r.LoLRegions)
	}
	if r.LoLQueue != "RANKED_SOLO_5x5" || r.TFTQueue != "RANKED_TFT" {
		t.Fatalf("unexpected queues: lol=%q tft=%q", r.LoLQueue, r.TFTQueue)
	}
	if cfg.SnapshotStore != SnapshotStorePostgres {
		t.Fatalf("unexpected SnapshotStore: %q", cfg.SnapshotStore)
	}
}

func TestLoad_RefreshOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOL_REGIONS", " na1, euw1 ,,kr")
	t.Setenv("REFRESH_REGION_DELAY", "0s")
	t.Setenv("REFRESH_ENRICH_CONCURRENCY", "3")
	t.Setenv("SNAPSHOT_STORE", "MEMORY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.Refresh.LoLRegions; len(got) != 3 || got[0] != "na1" || got[2] != "kr" {
		t.Fatalf("unexpected LoL regions: %v", got)
	}
	if cfg.Refresh.RegionDelay != 0 {
		t.Fatalf("expected zero region delay, got %s", cfg.Refresh.RegionDelay)
	}
	if cfg.Refresh.EnrichConcurrency != 3 {
		t.Fatalf("unexpected concurrency: %d", cfg.Refresh.EnrichConcurrency)
	}
	if cfg.SnapshotStore != SnapshotStoreMemory {
		t.Fatalf("unexpected SnapshotStore: %q", cfg.SnapshotStore)
	}
}

func TestLoad_RejectsInvalidRefreshValues(t *testing.T) {
	cases := map[string]string{
		"REFRESH_ENRICH_CONCURRENCY": "0",
		"REFRESH_SNAPSHOT_TTL":       "-1h",
		"REFRESH_REGION_DELAY":       "soon",
		"SNAPSHOT_STORE":             "redis",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoad_SwaggerDefaultsOffInProd(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SWAGGER_ENABLED", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ladder.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.SwaggerEnabled {
		t.Fatalf("expected swagger enabled outside prod")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}

	t.Setenv("APP_ENV", EnvProd)
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SwaggerEnabled {
		t.Fatalf("expected swagger disabled in prod by default")
	}
}

func TestLoadDatabase_IgnoresProviderSettings(t *testing.T) {
	t.Setenv("RIOT_ENABLED", "true")
	t.Setenv("RIOT_API_KEY", "")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/ladder_cache")
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")

	cfg, err := LoadDatabase()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBURL != "postgres://u:p@db:5432/ladder_cache" {
		t.Fatalf("unexpected db url: %q", cfg.DBURL)
	}
	if cfg.DBDisablePreparedBinary {
		t.Fatalf("expected prepared binary flag off")
	}
}
