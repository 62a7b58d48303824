// Package gh provides the GitHub GraphQL client with quota gating, request
// pacing, retry logic, and optional response caching.
package gh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/cache"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/logging"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/quota"
)

// DefaultEndpoint is the GitHub GraphQL API endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghfetch_requests_total",
		Help: "Total GraphQL requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghfetch_request_duration_seconds",
		Help:    "GraphQL request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghfetch_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// Token is the GitHub bearer token. Required; there is no default.
	Token string

	// Endpoint overrides the GraphQL endpoint (for tests).
	Endpoint string

	// HTTPTimeout bounds each HTTP round trip.
	HTTPTimeout time.Duration

	// RequestsPerSecond paces outbound requests below GitHub's secondary
	// rate limits. The quota gate handles the primary budget.
	RequestsPerSecond float64
	Burst             int

	// Cache is an optional response cache for stable queries
	// (count probes, single-repository fetches). Nil disables caching.
	Cache *cache.Manager

	// Retry overrides the default retry policy when MaxAttempts > 0.
	Retry RetryPolicy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:             token,
		Endpoint:          DefaultEndpoint,
		HTTPTimeout:       30 * time.Second,
		RequestsPerSecond: 2,
		Burst:             2,
		Retry:             DefaultRetryPolicy(),
	}
}

// Client is the GitHub GraphQL client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	gate       *quota.Gate
	pacer      *rate.Limiter
	cache      *cache.Manager
	retry      RetryPolicy
	logger     zerolog.Logger
}

// New creates a new client authenticated with the configured token.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	logger := logging.NewLogger("gh-client")

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.HTTPTimeout

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		gate:       quota.NewGate(logging.NewLogger("quota")),
		pacer:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cache:      cfg.Cache,
		retry:      cfg.Retry,
		logger:     logger,
	}, nil
}

// Gate exposes the quota gate for status reporting.
func (c *Client) Gate() *quota.Gate {
	return c.gate
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// CountAccounts probes the total match count of an account search.
func (c *Client) CountAccounts(ctx context.Context, query string) (int, error) {
	var out countAccountsData
	vars := map[string]any{"query": query}
	if err := c.execute(ctx, "CountAccounts", countAccountsQuery, vars, &out, true); err != nil {
		return 0, err
	}
	return out.Search.UserCount, nil
}

// CountRepositories probes the total match count of a repository search.
func (c *Client) CountRepositories(ctx context.Context, query string) (int, error) {
	var out countRepositoriesData
	vars := map[string]any{"query": query}
	if err := c.execute(ctx, "CountRepositories", countRepositoriesQuery, vars, &out, true); err != nil {
		return 0, err
	}
	return out.Search.RepositoryCount, nil
}

// SearchAccounts fetches one page of an account search.
// An empty after cursor fetches the first page.
func (c *Client) SearchAccounts(ctx context.Context, query string, first int, after string) (*AccountPage, error) {
	var out searchAccountsData
	vars := map[string]any{"query": query, "first": first}
	if after != "" {
		vars["after"] = after
	}
	if err := c.execute(ctx, "SearchAccounts", searchAccountsQuery, vars, &out, false); err != nil {
		return nil, err
	}
	return &AccountPage{
		Accounts:   out.Search.Nodes,
		PageInfo:   out.Search.PageInfo,
		TotalCount: out.Search.UserCount,
	}, nil
}

// SearchRepositories fetches one page of a repository search, with full
// repository detail and README content in the same round trip.
func (c *Client) SearchRepositories(ctx context.Context, query string, first int, after string) (*RepositoryPage, error) {
	var out searchRepositoriesData
	vars := map[string]any{"query": query, "first": first}
	if after != "" {
		vars["after"] = after
	}
	if err := c.execute(ctx, "SearchRepositories", searchRepositoriesQuery, vars, &out, false); err != nil {
		return nil, err
	}
	// The API may interleave null nodes; drop them here so callers never see them.
	repos := make([]*Repository, 0, len(out.Search.Nodes))
	for _, node := range out.Search.Nodes {
		if node != nil {
			repos = append(repos, node)
		}
	}
	return &RepositoryPage{
		Repositories: repos,
		PageInfo:     out.Search.PageInfo,
		TotalCount:   out.Search.RepositoryCount,
	}, nil
}

// FetchRepository fetches a single repository by exact owner and name.
// Returns ErrNotFound when the repository does not exist or is inaccessible.
func (c *Client) FetchRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var out singleRepositoryData
	vars := map[string]any{"owner": owner, "name": name}
	if err := c.execute(ctx, "FetchRepository", singleRepositoryQuery, vars, &out, true); err != nil {
		return nil, err
	}
	if out.Repository == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, owner, name)
	}
	return out.Repository, nil
}

// ProbeRateLimit queries the current quota without touching search.
func (c *Client) ProbeRateLimit(ctx context.Context) (quota.State, error) {
	var out rateLimitOnly
	if err := c.execute(ctx, "RateLimit", rateLimitQuery, nil, &out, false); err != nil {
		return quota.State{}, err
	}
	return c.gate.State(), nil
}

// execute runs one GraphQL operation: cache lookup, quota gate, pacing, the
// retried HTTP round trip, gate refresh from the response rateLimit block,
// and decoding into out.
func (c *Client) execute(ctx context.Context, op, doc string, variables map[string]any, out any, cacheable bool) error {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	key := cache.Key{Operation: op, Query: doc, Variables: variables}
	if cacheable && c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			requestsTotal.WithLabelValues(op, "cache_hit").Inc()
			return json.Unmarshal(entry.Data, out)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("operation", op).Msg("Cache get error")
		}
	}

	if err := c.gate.BeforeRequest(ctx); err != nil {
		return err
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	var data json.RawMessage
	err := retryWithBackoff(ctx, c.logger, c.retry, func() error {
		var attemptErr error
		data, attemptErr = c.roundTrip(ctx, op, doc, variables)
		return attemptErr
	})
	if err != nil {
		errorsTotal.WithLabelValues(string(classOf(err))).Inc()
		return err
	}

	if cacheable && c.cache != nil {
		if err := c.cache.Set(ctx, key, data); err != nil {
			c.logger.Warn().Err(err).Str("operation", op).Msg("Cache set error")
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// roundTrip performs a single HTTP attempt and classifies failures.
func (c *Client) roundTrip(ctx context.Context, op, doc string, variables map[string]any) (json.RawMessage, error) {
	payload := map[string]any{"query": doc}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(op, "network_error").Inc()
		return nil, &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		// Quota headers still accompany error responses; trust them.
		c.recordHeaders(resp)

		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("GraphQL request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Class: ErrorClassNetwork, Message: "read response", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{Class: ErrorClassServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	// Refresh the gate from the in-band rateLimit block before surfacing
	// GraphQL errors: even a rejected query reports quota.
	if len(env.Data) > 0 {
		var rl rateLimitOnly
		if err := json.Unmarshal(env.Data, &rl); err == nil && rl.RateLimit != nil {
			c.gate.RecordResponse(rl.RateLimit.Remaining, rl.RateLimit.Limit, rl.RateLimit.ResetAt)
		}
	}

	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		errorsTotal.WithLabelValues(string(ErrorClassGraphQL)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassGraphQL,
			Message:    strings.Join(msgs, "; "),
		}
	}

	return env.Data, nil
}

// recordHeaders updates the gate from REST-style rate limit headers, which is
// all GitHub provides on non-200 responses.
func (c *Client) recordHeaders(resp *http.Response) {
	remainStr := resp.Header.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))

	var resetAt time.Time
	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(epoch, 0)
		}
	}

	c.gate.RecordResponse(remaining, limit, resetAt)
}

// classifyStatus categorizes an HTTP status for retry handling.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ErrorClassNetwork
	}
}
