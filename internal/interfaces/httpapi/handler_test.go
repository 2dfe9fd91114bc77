package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/infrastructure/repository/memory"
	leaderboardmock "github.com/riskibarqy/ladder-cache/internal/mocks/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/cache"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJobToken = "job-secret"

type testEnvelope[T any] struct {
	APIVersion string     `json:"apiVersion"`
	Data       T          `json:"data"`
	Error      *errorBody `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var out testEnvelope[T]
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type requestRecorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (r *requestRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedRequest{method: method, route: route, status: status})
}

type staticCircuits map[string]resilience.CircuitState

func (s staticCircuits) BreakerStates() map[string]resilience.CircuitState { return s }

type routerFixture struct {
	snapshots *memory.SnapshotRepository
	runs      *memory.RefreshRunRepository
	observer  *requestRecorder
	router    http.Handler
}

type fixtureOptions struct {
	provider  leaderboard.RankProvider
	token     string
	readCache bool
	circuits  CircuitReporter
	seed      []leaderboard.Snapshot
}

func newRouterFixture(t *testing.T, opts fixtureOptions) *routerFixture {
	t.Helper()

	snapshots := memory.NewSnapshotRepository(opts.seed...)
	runs := memory.NewRefreshRunRepository()
	snapshotCache := usecase.NewSnapshotCache(snapshots, 18*time.Hour)

	var store *cache.Store[*leaderboard.Snapshot]
	if opts.readCache {
		store = cache.NewStore[*leaderboard.Snapshot](time.Minute)
	}
	query := usecase.NewLeaderboardQueryService(snapshotCache, store, usecase.LeaderboardQueryConfig{
		LoLQueue: "RANKED_SOLO_5x5",
		TFTQueue: "RANKED_TFT",
	})

	var orchestrator *usecase.RefreshOrchestrator
	if opts.provider != nil {
		refresher := usecase.NewPartitionRefresher(snapshotCache, opts.provider, usecase.DefaultPartitionRefresherConfig(), nil, nil)
		orchestrator = usecase.NewRefreshOrchestrator(refresher, runs, nil, nil)
	}
	refresh := usecase.NewRefreshService(orchestrator, usecase.RefreshServiceConfig{
		ProviderEnabled: opts.provider != nil,
		LoLRegions:      []string{"NA1"},
		TFTRegions:      []string{"NA1"},
		LoLQueue:        "RANKED_SOLO_5x5",
		TFTQueue:        "RANKED_TFT",
	}, nil)

	observer := &requestRecorder{}
	handler := NewHandler(query, refresh, runs, opts.circuits, nil)
	router := NewRouter(handler, RouterOptions{
		InternalJobToken:   opts.token,
		CORSAllowedOrigins: []string{"*"},
		Metrics:            observer,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})

	return &routerFixture{snapshots: snapshots, runs: runs, observer: observer, router: router}
}

func (f *routerFixture) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func challengerKey() leaderboard.PartitionKey {
	return leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Queue: "RANKED_SOLO_5x5", Tier: "CHALLENGER", Division: "I"}
}

func seededSnapshot(fetchedAt time.Time) leaderboard.Snapshot {
	payload := []leaderboard.EnrichedEntry{
		leaderboard.Enrich(leaderboard.Entry{PlayerID: "p-1", LeaguePoints: 1500, Wins: 120, Losses: 80}, leaderboard.Profile{DisplayName: "Faker", DisplayTag: "KR1"}),
		leaderboard.Enrich(leaderboard.Entry{PlayerID: "p-2", LeaguePoints: 1400, Wins: 100, Losses: 90}, leaderboard.UnknownProfile()),
	}
	return leaderboard.NewSnapshot(challengerKey(), payload, fetchedAt, 18*time.Hour)
}

func TestGetLeaderboard_Hit(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{seed: []leaderboard.Snapshot{seededSnapshot(time.Now().Add(-time.Hour))}})
	rec := f.do(http.MethodGet, "/v1/leaderboards/lol/na1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get(headerCacheStatus))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Cache-Control"), "public, max-age="))
	assert.NotEmpty(t, rec.Header().Get(headerFetchedAt))
	assert.NotEmpty(t, rec.Header().Get(headerExpiresAt))

	body := decodeEnvelope[leaderboardDTO](t, rec)
	assert.Equal(t, "lol", body.Data.Game)
	assert.Equal(t, "RANKED_SOLO_5X5", body.Data.Queue)
	require.Len(t, body.Data.Entries, 2)
	assert.Equal(t, "p-1", body.Data.Entries[0].PlayerID)
	assert.Equal(t, "Faker", body.Data.Entries[0].ProfileData.DisplayName)
	assert.True(t, body.Data.Entries[1].ProfileData.IsUnknown())
}

func TestGetLeaderboard_StaleAndMissAreNotFound(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{seed: []leaderboard.Snapshot{seededSnapshot(time.Now().Add(-20 * time.Hour))}})

	stale := f.do(http.MethodGet, "/v1/leaderboards/lol/NA1?tier=challenger&division=I", "", nil)
	require.Equal(t, http.StatusNotFound, stale.Code)
	assert.Equal(t, "STALE", stale.Header().Get(headerCacheStatus))
	assert.Equal(t, "no-store", stale.Header().Get("Cache-Control"))
	assert.NotEmpty(t, stale.Header().Get(headerFetchedAt))

	miss := f.do(http.MethodGet, "/v1/leaderboards/lol/KR", "", nil)
	require.Equal(t, http.StatusNotFound, miss.Code)
	assert.Equal(t, "MISS", miss.Header().Get(headerCacheStatus))
	assert.Empty(t, miss.Header().Get(headerFetchedAt))
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, miss).Error.Status)
}

func TestGetLeaderboard_InvalidInput(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{})
	for _, target := range []string{
		"/v1/leaderboards/dota/NA1",
		"/v1/leaderboards/lol/NA1?division=V",
		"/v1/leaderboards/lol/NA1?tier=gold-1",
	} {
		rec := f.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestInternalJobRoutes_NotMountedWithoutToken(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{})
	rec := f.do(http.MethodPost, "/v1/internal/jobs/refresh-leaderboards", "", map[string]string{"Authorization": "Bearer anything"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshJob_RejectsBadToken(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{token: testJobToken})
	for _, header := range []map[string]string{
		nil,
		{"Authorization": "Bearer wrong"},
		{"Authorization": "Basic " + testJobToken},
	} {
		rec := f.do(http.MethodPost, "/v1/internal/jobs/refresh-leaderboards", "", header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestRefreshJob_ProviderNotConfigured(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{token: testJobToken})
	rec := f.do(http.MethodPost, "/v1/internal/jobs/refresh-leaderboards", "", map[string]string{"X-Internal-Job-Token": testJobToken})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "FAILED_PRECONDITION", decodeEnvelope[any](t, rec).Error.Status)
}

func TestRefreshJob_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	provider := leaderboardmock.NewRankProvider(t)
	f := newRouterFixture(t, fixtureOptions{token: testJobToken, provider: provider})
	rec := f.do(http.MethodPost, "/v1/internal/jobs/refresh-leaderboards", `{"game":"lol","regions":"NA1"}`,
		map[string]string{"Authorization": "Bearer " + testJobToken})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshJob_RunsAndInvalidatesReadCache(t *testing.T) {
	t.Parallel()

	provider := leaderboardmock.NewRankProvider(t)
	provider.On("FetchLadderPage", mock.Anything, mock.Anything).Return([]leaderboard.Entry{
		{PlayerID: "p-2", LeaguePoints: 900},
		{PlayerID: "p-1", LeaguePoints: 1100},
	}, nil).Once()
	provider.On("FetchPlayerEnrichment", mock.Anything, mock.Anything).
		Return(func(_ context.Context, ref leaderboard.PlayerRef) (leaderboard.Profile, error) {
			return leaderboard.Profile{DisplayName: "name-" + ref.PlayerID, DisplayTag: "NA1"}, nil
		}).Twice()

	f := newRouterFixture(t, fixtureOptions{token: testJobToken, provider: provider, readCache: true})
	auth := map[string]string{"Authorization": "Bearer " + testJobToken}

	before := f.do(http.MethodGet, "/v1/leaderboards/lol/NA1", "", nil)
	require.Equal(t, http.StatusNotFound, before.Code)
	require.Equal(t, "MISS", before.Header().Get(headerCacheStatus))

	rec := f.do(http.MethodPost, "/v1/internal/jobs/refresh-leaderboards",
		`{"game":"lol","lolRegions":"NA1","forceRefresh":true,"regionDelayMs":0}`, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeEnvelope[usecase.RefreshResponse](t, rec)
	assert.True(t, out.Data.OK)
	require.Len(t, out.Data.Summaries, 1)
	summary := out.Data.Summaries[0]
	assert.Equal(t, leaderboard.GameLoL, summary.Game)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 0, summary.FailureCount)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 2, summary.Results[0].ItemCount)

	after := f.do(http.MethodGet, "/v1/leaderboards/lol/NA1", "", nil)
	require.Equal(t, http.StatusOK, after.Code, after.Body.String())
	assert.Equal(t, "HIT", after.Header().Get(headerCacheStatus))
	board := decodeEnvelope[leaderboardDTO](t, after)
	require.Len(t, board.Data.Entries, 2)
	assert.Equal(t, "p-1", board.Data.Entries[0].PlayerID)
	assert.Equal(t, "name-p-1", board.Data.Entries[0].ProfileData.DisplayName)

	runs := f.do(http.MethodGet, "/v1/internal/jobs/refresh-runs?limit=5", "", auth)
	require.Equal(t, http.StatusOK, runs.Code)
	list := decodeEnvelope[[]refreshRunDTO](t, runs)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "completed", list.Data[0].Status)
	assert.Equal(t, "lol", list.Data[0].Game)
}

func TestListRefreshRuns_InvalidLimit(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{token: testJobToken})
	for _, limit := range []string{"0", "101", "abc"} {
		rec := f.do(http.MethodGet, "/v1/internal/jobs/refresh-runs?limit="+limit, "", map[string]string{"Authorization": "Bearer " + testJobToken})
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestHealthz_ReportsOpenCircuit(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{circuits: staticCircuits{
		"na1.api.riotgames.com":      resilience.CircuitStateOpen,
		"americas.api.riotgames.com": resilience.CircuitStateClosed,
	}})
	rec := f.do(http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope[healthDTO](t, rec)
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, resilience.CircuitStateOpen, body.Data.Circuits["na1.api.riotgames.com"])
}

func TestRouter_ObservesMatchedRoute(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, fixtureOptions{})
	f.do(http.MethodGet, "/v1/leaderboards/tft/EUW1", "", nil)
	f.do(http.MethodGet, "/metrics", "", nil)
	f.do(http.MethodGet, "/nope", "", nil)

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	require.Len(t, f.observer.seen, 3)
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "GET /v1/leaderboards/{game}/{region}", status: http.StatusNotFound}, f.observer.seen[0])
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "GET /metrics", status: http.StatusOK}, f.observer.seen[1])
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "unmatched", status: http.StatusNotFound}, f.observer.seen[2])
}
