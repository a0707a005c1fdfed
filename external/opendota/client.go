package opendota

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/dotastats/prostats/internal/platform/logging"
	"github.com/dotastats/prostats/internal/platform/ratelimit"
	"github.com/dotastats/prostats/internal/platform/resilience"
	"github.com/dotastats/prostats/internal/usecase"
)

const (
	defaultBaseURL = "https://api.opendota.com/api"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 16 << 20

	// proMatchesPageSize is the page size requested from the listing
	// endpoint; the provider caps it at 100.
	proMatchesPageSize = 100
)

var apiKeyParamRegex = regexp.MustCompile(`api_key=[^&\s"']+`)
var errProviderTransient = crerr.New("opendota transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	Limiter        *ratelimit.Limiter
	CircuitBreaker resilience.BreakerConfig
}

// Client talks to the match-statistics provider. All requests flow through
// the shared rate limiter, the circuit breaker, and a single-flight group so
// concurrent workers never duplicate an in-flight fetch.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	limiter        *ratelimit.Limiter
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	breakerCfg := resilience.NormalizeBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		limiter:        limiter,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchProMatches returns one page of the pro-match listing. lessThan == 0
// fetches the most recent page; otherwise only matches with a smaller id
// are listed.
func (c *Client) FetchProMatches(ctx context.Context, lessThan int64) ([]usecase.ExternalMatchSummary, error) {
	query := map[string]string{"limit": strconv.Itoa(proMatchesPageSize)}
	if lessThan > 0 {
		query["less_than_match_id"] = strconv.FormatInt(lessThan, 10)
	}

	var out []usecase.ExternalMatchSummary
	if _, err := c.doJSON(ctx, "/proMatches", query, &out); err != nil {
		return nil, fmt.Errorf("fetch pro matches less_than=%d: %w", lessThan, err)
	}
	return out, nil
}

// FetchMatch returns the full match document plus its raw bytes for
// archival.
func (c *Client) FetchMatch(ctx context.Context, matchID int64) (usecase.ExternalMatchDocument, []byte, error) {
	if matchID <= 0 {
		return usecase.ExternalMatchDocument{}, nil, fmt.Errorf("%w: match id must be greater than zero", usecase.ErrInvalidInput)
	}

	var out usecase.ExternalMatchDocument
	raw, err := c.doJSON(ctx, "/matches/"+strconv.FormatInt(matchID, 10), nil, &out)
	if err != nil {
		return usecase.ExternalMatchDocument{}, nil, fmt.Errorf("fetch match %d: %w", matchID, err)
	}
	return out, raw, nil
}

func (c *Client) FetchHeroes(ctx context.Context) ([]usecase.ExternalHero, error) {
	var out []usecase.ExternalHero
	if _, err := c.doJSON(ctx, "/heroes", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch heroes: %w", err)
	}
	return out, nil
}

func (c *Client) FetchLeagues(ctx context.Context) ([]usecase.ExternalLeague, error) {
	var out []usecase.ExternalLeague
	if _, err := c.doJSON(ctx, "/leagues", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	return out, nil
}

func (c *Client) FetchProPlayers(ctx context.Context) ([]usecase.ExternalProPlayer, error) {
	var out []usecase.ExternalProPlayer
	if _, err := c.doJSON(ctx, "/proPlayers", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch pro players: %w", err)
	}
	return out, nil
}

func (c *Client) FetchTeam(ctx context.Context, teamID int64) (usecase.ExternalTeam, error) {
	if teamID <= 0 {
		return usecase.ExternalTeam{}, fmt.Errorf("%w: team id must be greater than zero", usecase.ErrInvalidInput)
	}

	var out usecase.ExternalTeam
	if _, err := c.doJSON(ctx, "/teams/"+strconv.FormatInt(teamID, 10), nil, &out); err != nil {
		return usecase.ExternalTeam{}, fmt.Errorf("fetch team %d: %w", teamID, err)
	}
	return out, nil
}

// FetchTeamMatches lists a team's recent pro matches, most recent first.
func (c *Client) FetchTeamMatches(ctx context.Context, teamID int64) ([]usecase.ExternalMatchSummary, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("%w: team id must be greater than zero", usecase.ErrInvalidInput)
	}

	var out []usecase.ExternalMatchSummary
	if _, err := c.doJSON(ctx, "/teams/"+strconv.FormatInt(teamID, 10)+"/matches", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch team %d matches: %w", teamID, err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "opendota circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	flightKey := path + "?" + values.Encode()
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, _ := c.flight.Do(flightKey, func() ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				wait := retryAfter(resp.Header)
				c.logger.WarnContext(ctx, "provider rate limit hit, backing off", "retry_after", wait)
				if err := c.limiter.Pause(ctx, wait); err != nil {
					return nil, err
				}
				lastErr = fmt.Errorf("%w: provider throttled the request", usecase.ErrRateLimited)
				// The Retry-After pause already covered the wait.
				continue
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: provider status=404", usecase.ErrNotFound)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "opendota request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

// retryAfter parses the Retry-After header; the provider's documented
// throttle window is the fallback.
func retryAfter(header http.Header) time.Duration {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Minute
}

func isRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errProviderTransient) || stderrors.Is(err, usecase.ErrRateLimited)
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "api_key=REDACTED")
}

func redactAPIURL(fullURL string) string {
	return apiKeyParamRegex.ReplaceAllString(fullURL, "api_key=REDACTED")
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
