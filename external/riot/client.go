package riot

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout     = 10 * time.Second
	maxResponseBody    = 8 << 20
	tokenHeader        = "X-Riot-Token"
	defaultLoLQueue    = "RANKED_SOLO_5x5"
	defaultTFTQueue    = "RANKED_TFT"
	riotHostSuffix     = ".api.riotgames.com"
	bodyPreviewMaxSize = 240
)

var errRiotTransport = crerr.New("riot transport failure")

var _ leaderboard.RankProvider = (*Client)(nil)

type ClientConfig struct {
	APIKey          string
	// BaseURL replaces every routing host when set (proxies and tests).
	BaseURL         string
	Timeout         time.Duration
	Logger          *logging.Logger
	CircuitBreaker  resilience.CircuitBreakerConfig
	HTTPClient      *fasthttp.Client
	// OnCircuitChange is called after the breaker of a host changes state.
	OnCircuitChange func(host string, to resilience.CircuitState)
}

// Client is a RankProvider over the Riot Games HTTP API. Calls are routed
// to the platform host for league and summoner data and to the regional
// host for account data, each host guarded by its own circuit breaker.
type Client struct {
	httpClient *fasthttp.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
	logger     *logging.Logger
	breakers   *resilience.BreakerSet
	now        func() time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, crerr.Wrap(usecase.ErrConfiguration, "riot api key is required")
	}

	baseURL := ""
	if strings.TrimSpace(cfg.BaseURL) != "" {
		validated, err := validateHTTPBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, crerr.Wrapf(usecase.ErrConfiguration, "invalid RIOT_BASE_URL: %v", err)
		}
		baseURL = validated
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "ladder-cache",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBody,
			MaxConnsPerHost:     64,
		}
	}

	c := &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    baseURL,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
	c.breakers = resilience.NewBreakerSet(cfg.CircuitBreaker, func(host string, from, to resilience.CircuitState) {
		c.logger.Warn("riot circuit breaker state changed", "host", host, "from", from, "to", to)
		if cfg.OnCircuitChange != nil {
			cfg.OnCircuitChange(host, to)
		}
	})
	return c, nil
}

// BreakerStates exposes per-host breaker state for health reporting.
func (c *Client) BreakerStates() map[string]resilience.CircuitState {
	return c.breakers.States()
}

// FetchLadderPage returns the first page of a ladder. Apex tiers are served
// as a single league list; other tiers use the paged entries endpoint.
func (c *Client) FetchLadderPage(ctx context.Context, key leaderboard.PartitionKey) ([]leaderboard.Entry, error) {
	key = key.Normalize()
	platform := strings.ToLower(key.Region)
	if platform == "" {
		return nil, leaderboard.NewProviderError(leaderboard.ErrorKindFatal, 0, crerr.New("region is required"))
	}

	path, query, apex, err := ladderRequest(key)
	if err != nil {
		return nil, leaderboard.NewProviderError(leaderboard.ErrorKindFatal, 0, err)
	}

	if apex {
		var list leagueList
		if err := c.getJSON(ctx, platform, path, query, &list); err != nil {
			return nil, err
		}
		return toEntries(list.Entries, list.Tier), nil
	}

	var items []leagueItem
	if err := c.getJSON(ctx, platform, path, query, &items); err != nil {
		return nil, err
	}
	return toEntries(items, key.Tier), nil
}

func ladderRequest(key leaderboard.PartitionKey) (string, url.Values, bool, error) {
	query := url.Values{}
	apex, isApex := apexPath(key.Tier)

	switch key.Game {
	case leaderboard.GameLoL:
		queue := ProviderQueue(key.Queue)
		if queue == "" {
			queue = defaultLoLQueue
		}
		if isApex {
			return "/lol/league/v4/" + apex + "leagues/by-queue/" + url.PathEscape(queue), query, true, nil
		}
		if key.Division == "" {
			return "", nil, false, crerr.Newf("division is required for tier %s", key.Tier)
		}
		query.Set("page", "1")
		return fmt.Sprintf("/lol/league/v4/entries/%s/%s/%s", url.PathEscape(queue), url.PathEscape(key.Tier), url.PathEscape(key.Division)), query, false, nil
	case leaderboard.GameTFT:
		queue := ProviderQueue(key.Queue)
		if queue == "" {
			queue = defaultTFTQueue
		}
		query.Set("queue", queue)
		if isApex {
			return "/tft/league/v1/" + apex, query, true, nil
		}
		if key.Division == "" {
			return "", nil, false, crerr.Newf("division is required for tier %s", key.Tier)
		}
		query.Set("page", "1")
		return fmt.Sprintf("/tft/league/v1/entries/%s/%s", url.PathEscape(key.Tier), url.PathEscape(key.Division)), query, false, nil
	default:
		return "", nil, false, crerr.Newf("unsupported game %q", key.Game)
	}
}

func toEntries(items []leagueItem, tier string) []leaderboard.Entry {
	out := make([]leaderboard.Entry, 0, len(items))
	for _, item := range items {
		playerID := strings.TrimSpace(item.PUUID)
		if playerID == "" {
			playerID = strings.TrimSpace(item.SummonerID)
		}

		extra := map[string]any{
			"veteran":    item.Veteran,
			"inactive":   item.Inactive,
			"freshBlood": item.FreshBlood,
			"hotStreak":  item.HotStreak,
		}
		if item.SummonerID != "" {
			extra["summonerId"] = item.SummonerID
		}
		if item.LeagueID != "" {
			extra["leagueId"] = item.LeagueID
		}
		if t := firstNonEmpty(item.Tier, tier); t != "" {
			extra["tier"] = strings.ToUpper(t)
		}

		out = append(out, leaderboard.Entry{
			PlayerID:     playerID,
			LeaguePoints: item.LeaguePoints,
			Wins:         item.Wins,
			Losses:       item.Losses,
			Rank:         item.Rank,
			Extra:        extra,
		})
	}
	return out
}

// FetchPlayerEnrichment resolves the Riot id on the regional host and the
// profile icon on the platform host. A missing summoner keeps the name and
// drops the icon.
func (c *Client) FetchPlayerEnrichment(ctx context.Context, ref leaderboard.PlayerRef) (leaderboard.Profile, error) {
	playerID := strings.TrimSpace(ref.PlayerID)
	if playerID == "" {
		return leaderboard.Profile{}, leaderboard.NewProviderError(leaderboard.ErrorKindNotFound, 0, crerr.New("player id is empty"))
	}

	var account accountDTO
	if err := c.getJSON(ctx, RegionalRoute(ref.Region), "/riot/account/v1/accounts/by-puuid/"+url.PathEscape(playerID), nil, &account); err != nil {
		return leaderboard.Profile{}, err
	}

	profile := leaderboard.Profile{
		DisplayName: firstNonEmpty(account.GameName, leaderboard.UnknownDisplayName),
		DisplayTag:  firstNonEmpty(account.TagLine, leaderboard.UnknownDisplayTag),
	}

	summonerPath := "/lol/summoner/v4/summoners/by-puuid/"
	if ref.Game == leaderboard.GameTFT {
		summonerPath = "/tft/summoner/v1/summoners/by-puuid/"
	}
	var summoner summonerDTO
	err := c.getJSON(ctx, strings.ToLower(strings.TrimSpace(ref.Region)), summonerPath+url.PathEscape(playerID), nil, &summoner)
	switch {
	case err == nil:
		icon := summoner.ProfileIconID
		profile.IconID = &icon
	case leaderboard.IsNotFound(err):
	default:
		return leaderboard.Profile{}, err
	}

	return profile, nil
}

func (c *Client) getJSON(ctx context.Context, host, path string, query url.Values, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	breaker := c.breakers.For(host)
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "riot circuit breaker rejected request", "host", host, "state", breaker.State())
			return fmt.Errorf("%w: riot host %s: %w", usecase.ErrDependencyUnavailable, host, err)
		}
	}

	endpoint := c.endpoint(host, path, query)
	body, err := c.do(ctx, endpoint)
	recordCircuitResult(breaker, err)
	if err != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.AddEvent("riot.request_failed", trace.WithAttributes(
				attribute.String("riot.host", host),
				attribute.String("riot.path", path),
				attribute.Int("riot.status", statusOf(err)),
			))
		}
		return err
	}

	if err := sonic.Unmarshal(body, target); err != nil {
		return leaderboard.NewProviderError(leaderboard.ErrorKindFatal, http.StatusOK, crerr.Wrapf(err, "decode riot payload path=%s", path))
	}
	return nil
}

func (c *Client) endpoint(host, path string, query url.Values) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if c.baseURL != "" {
		_, _ = buf.WriteString(c.baseURL)
	} else {
		_, _ = buf.WriteString("https://")
		_, _ = buf.WriteString(host)
		_, _ = buf.WriteString(riotHostSuffix)
	}
	_, _ = buf.WriteString(path)
	if encoded := query.Encode(); encoded != "" {
		_ = buf.WriteByte('?')
		_, _ = buf.WriteString(encoded)
	}
	return buf.String()
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(tokenHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	deadline := c.now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, leaderboard.NewProviderError(
			leaderboard.ErrorKindTransient,
			0,
			crerr.Wrapf(errRiotTransport, "GET %s: %s", endpoint, sanitizeSensitiveText(err.Error(), c.apiKey)),
		)
	}

	status := resp.StatusCode()
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		body := resp.Body()
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}

	return nil, classifyStatus(status, string(resp.Header.Peek("Retry-After")), resp.Body(), c.now())
}

// classifyStatus maps a non-2xx response onto a provider error kind.
func classifyStatus(status int, retryAfter string, body []byte, now time.Time) *leaderboard.ProviderError {
	cause := crerr.Newf("riot status=%d body=%s", status, abbreviateBody(body))

	switch {
	case status == http.StatusNotFound || status == http.StatusForbidden:
		return leaderboard.NewProviderError(leaderboard.ErrorKindNotFound, status, cause)
	case status == http.StatusTooManyRequests:
		perr := leaderboard.NewProviderError(leaderboard.ErrorKindRateLimited, status, cause)
		perr.RetryAfter = parseRetryAfter(retryAfter, now)
		return perr
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return leaderboard.NewProviderError(leaderboard.ErrorKindTransient, status, cause)
	default:
		return leaderboard.NewProviderError(leaderboard.ErrorKindFatal, status, cause)
	}
}

// parseRetryAfter accepts delta seconds or an HTTP date. Unparseable values yield zero.
func parseRetryAfter(raw string, now time.Time) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}

// recordCircuitResult counts only transport and 5xx failures against the host.
func recordCircuitResult(breaker *resilience.CircuitBreaker, err error) {
	if breaker == nil {
		return
	}
	if isCircuitFailure(err) {
		breaker.RecordFailure()
		return
	}
	breaker.RecordSuccess()
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	var perr *leaderboard.ProviderError
	if !stderrors.As(err, &perr) {
		return false
	}
	return perr.Kind == leaderboard.ErrorKindTransient
}

func statusOf(err error) int {
	var perr *leaderboard.ProviderError
	if stderrors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return strings.TrimRight(candidate, "/"), nil
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= bodyPreviewMaxSize {
		return text
	}
	return text[:bodyPreviewMaxSize] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
