package riot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path  string
	query string
	token string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	requests := &[]recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*requests = append(*requests, recordedRequest{path: r.URL.Path, query: r.URL.RawQuery, token: r.Header.Get(tokenHeader)})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newTestClient(t *testing.T, baseURL string, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	c, err := NewClient(ClientConfig{
		APIKey:         "RGAPI-test-key",
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		CircuitBreaker: breaker,
	})
	require.NoError(t, err)
	return c
}

func disabledBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{Enabled: false}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrConfiguration))

	_, err = NewClient(ClientConfig{APIKey: "k", BaseURL: "ftp://example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrConfiguration))
}

func TestClient_FetchLadderPage_ApexLoL(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tier":"CHALLENGER","leagueId":"lg-1","queue":"RANKED_SOLO_5x5","entries":[
			{"puuid":"pu-1","summonerId":"s-1","leaguePoints":1500,"rank":"I","wins":200,"losses":150,"hotStreak":true},
			{"puuid":"","summonerId":"s-2","leaguePoints":1400,"rank":"I","wins":180,"losses":160}
		]}`))
	})
	c := newTestClient(t, srv.URL, disabledBreaker())

	entries, err := c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{
		Game: leaderboard.GameLoL, Region: "na1", Queue: "RANKED_SOLO_5X5", Tier: "challenger", Division: "I",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pu-1", entries[0].PlayerID)
	assert.Equal(t, 1500, entries[0].LeaguePoints)
	assert.Equal(t, true, entries[0].Extra["hotStreak"])
	assert.Equal(t, "CHALLENGER", entries[0].Extra["tier"])
	assert.Equal(t, "s-2", entries[1].PlayerID)

	require.Len(t, *requests, 1)
	assert.Equal(t, "/lol/league/v4/challengerleagues/by-queue/RANKED_SOLO_5x5", (*requests)[0].path)
	assert.Equal(t, "RGAPI-test-key", (*requests)[0].token)
}

func TestClient_FetchLadderPage_PagedTFT(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"puuid":"pu-9","tier":"DIAMOND","rank":"II","leaguePoints":75,"wins":40,"losses":30}]`))
	})
	c := newTestClient(t, srv.URL, disabledBreaker())

	entries, err := c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{
		Game: leaderboard.GameTFT, Region: "EUW1", Queue: "ranked_tft", Tier: "diamond", Division: "ii",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "II", entries[0].Rank)

	require.Len(t, *requests, 1)
	assert.Equal(t, "/tft/league/v1/entries/DIAMOND/II", (*requests)[0].path)
	assert.Contains(t, (*requests)[0].query, "queue=RANKED_TFT")
	assert.Contains(t, (*requests)[0].query, "page=1")
}

func TestClient_FetchLadderPage_MissingDivisionIsFatal(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1", disabledBreaker())
	_, err := c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Tier: "GOLD"})
	require.Error(t, err)
	kind, ok := leaderboard.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, leaderboard.ErrorKindFatal, kind)
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		kind   leaderboard.ErrorKind
	}{
		{http.StatusNotFound, leaderboard.ErrorKindNotFound},
		{http.StatusForbidden, leaderboard.ErrorKindNotFound},
		{http.StatusTooManyRequests, leaderboard.ErrorKindRateLimited},
		{http.StatusServiceUnavailable, leaderboard.ErrorKindTransient},
		{http.StatusUnauthorized, leaderboard.ErrorKindFatal},
		{http.StatusBadRequest, leaderboard.ErrorKindFatal},
	}
	for _, tc := range cases {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			if tc.status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "7")
			}
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"status":{"message":"nope"}}`))
		})
		c := newTestClient(t, srv.URL, disabledBreaker())

		_, err := c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "KR", Tier: "MASTER"})
		require.Error(t, err)

		var perr *leaderboard.ProviderError
		require.True(t, errors.As(err, &perr), "status %d", tc.status)
		assert.Equal(t, tc.kind, perr.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, perr.StatusCode)
		if tc.status == http.StatusTooManyRequests {
			assert.Equal(t, 7*time.Second, perr.RetryAfter)
		}
	}
}

func TestClient_FetchPlayerEnrichment_RoutesAccountAndSummoner(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/riot/account/v1/accounts/by-puuid/"):
			_, _ = w.Write([]byte(`{"puuid":"pu-1","gameName":"Hide on bush","tagLine":"KR1"}`))
		case strings.HasPrefix(r.URL.Path, "/lol/summoner/v4/summoners/by-puuid/"):
			_, _ = w.Write([]byte(`{"puuid":"pu-1","profileIconId":6,"summonerLevel":800}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := newTestClient(t, srv.URL, resilience.DefaultCircuitBreakerConfig())

	profile, err := c.FetchPlayerEnrichment(context.Background(), leaderboard.PlayerRef{Game: leaderboard.GameLoL, Region: "KR", PlayerID: "pu-1"})
	require.NoError(t, err)
	assert.Equal(t, "Hide on bush", profile.DisplayName)
	assert.Equal(t, "KR1", profile.DisplayTag)
	require.NotNil(t, profile.IconID)
	assert.Equal(t, 6, *profile.IconID)
	require.Len(t, *requests, 2)

	states := c.BreakerStates()
	assert.Contains(t, states, "asia")
	assert.Contains(t, states, "kr")
}

func TestClient_FetchPlayerEnrichment_MissingSummonerKeepsName(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/riot/account/") {
			_, _ = w.Write([]byte(`{"puuid":"pu-2","gameName":"Tactician","tagLine":"EUW"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, srv.URL, disabledBreaker())

	profile, err := c.FetchPlayerEnrichment(context.Background(), leaderboard.PlayerRef{Game: leaderboard.GameTFT, Region: "EUW1", PlayerID: "pu-2"})
	require.NoError(t, err)
	assert.Equal(t, "Tactician", profile.DisplayName)
	assert.Nil(t, profile.IconID)
}

func TestClient_FetchPlayerEnrichment_AccountNotFound(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, srv.URL, disabledBreaker())

	_, err := c.FetchPlayerEnrichment(context.Background(), leaderboard.PlayerRef{Game: leaderboard.GameLoL, Region: "NA1", PlayerID: "ghost"})
	require.Error(t, err)
	assert.True(t, leaderboard.IsNotFound(err))
	assert.Len(t, *requests, 1)
}

func TestClient_CircuitOpensPerHost(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, srv.URL, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	key := leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Tier: "CHALLENGER"}
	for i := 0; i < 2; i++ {
		_, err := c.FetchLadderPage(context.Background(), key)
		require.Error(t, err)
		assert.Equal(t, leaderboard.ErrorKindTransient, mustKind(t, err))
	}

	_, err := c.FetchLadderPage(context.Background(), key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.True(t, errors.Is(err, usecase.ErrDependencyUnavailable))
	assert.Len(t, *requests, 2)

	// Another platform host is unaffected.
	_, err = c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "EUW1", Tier: "CHALLENGER"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Len(t, *requests, 3)
}

func TestClient_TransportErrorIsTransientAndRedacted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c := newTestClient(t, baseURL, disabledBreaker())
	_, err := c.FetchLadderPage(context.Background(), leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Tier: "CHALLENGER"})
	require.Error(t, err)
	assert.Equal(t, leaderboard.ErrorKindTransient, mustKind(t, err))
	assert.NotContains(t, err.Error(), "RGAPI-test-key")
}

func TestClient_CancelledContextSkipsRequest(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	c := newTestClient(t, srv.URL, disabledBreaker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchLadderPage(ctx, leaderboard.PartitionKey{Game: leaderboard.GameLoL, Region: "NA1", Tier: "GOLD", Division: "I"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *requests)
}

func TestEndpoint_RoutesToRiotHosts(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "", disabledBreaker())
	assert.Equal(t, "https://na1.api.riotgames.com/lol/league/v4/masterleagues/by-queue/RANKED_SOLO_5x5",
		c.endpoint("na1", "/lol/league/v4/masterleagues/by-queue/RANKED_SOLO_5x5", nil))
	assert.Equal(t, "europe", RegionalRoute("euw1"))
	assert.Equal(t, "asia", RegionalRoute("OC1"))
	assert.Equal(t, "americas", RegionalRoute("unknown"))
	assert.Equal(t, "RANKED_SOLO_5x5", ProviderQueue("ranked_solo_5X5"))
	assert.Equal(t, "CUSTOM_QUEUE", ProviderQueue("CUSTOM_QUEUE"))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
}

func mustKind(t *testing.T, err error) leaderboard.ErrorKind {
	t.Helper()
	kind, ok := leaderboard.KindOf(err)
	require.True(t, ok, "expected provider error, got %v", err)
	return kind
}
