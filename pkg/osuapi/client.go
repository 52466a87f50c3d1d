// Package osuapi provides a typed client for the osu! API v2 with OAuth2
// client-credentials authentication, error classification, and paginated
// ranking retrieval.
package osuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for osu! API operations.
var (
	osuRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osu_api_requests_total",
		Help: "Total osu! API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	osuRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osu_api_request_duration_seconds",
		Help:    "osu! API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	osuErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osu_api_errors_total",
		Help: "Total osu! API errors by kind",
	}, []string{"kind"})
)

const (
	defaultBaseURL  = "https://osu.ppy.sh/api/v2"
	defaultTokenURL = "https://osu.ppy.sh/oauth/token"

	// gameMode is fixed: only the standard ruleset is supported.
	gameMode = "osu"

	// RankingPageSize is the fixed number of entries per ranking page.
	RankingPageSize = 50

	// bestScoresLimit is the fixed page size of the best-scores endpoint.
	// The endpoint is not paginated, one request returns everything.
	bestScoresLimit = 100
)

// Config holds the client configuration.
type Config struct {
	// OAuth2 client credentials (REQUIRED).
	ClientID     int
	ClientSecret string

	// User-Agent header sent with every request.
	UserAgent string

	// BaseURL of the API, without trailing slash. Overridable for tests.
	BaseURL string

	// TokenURL of the OAuth token endpoint. Overridable for tests.
	TokenURL string

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns the production configuration for the given
// credentials.
func DefaultConfig(clientID int, clientSecret string) Config {
	return Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAgent:    "osu-topscores-scrapper/0.1.0",
		BaseURL:      defaultBaseURL,
		TokenURL:     defaultTokenURL,
		Timeout:      30 * time.Second,
	}
}

// Client is a ready-to-use osu! API client. New performs the OAuth
// exchange, so a constructed Client always carries a valid bearer token;
// after construction the client holds no mutable state and may be shared
// across goroutines.
type Client struct {
	httpClient *http.Client
	config     Config
	token      string
	tokenType  string
	logger     zerolog.Logger
}

// New creates a client and synchronously performs one OAuth
// client-credentials exchange. There is no lazy or deferred auth: New
// either returns a usable client or an error. The token is never
// refreshed; if it expires mid-run every subsequent request fails and the
// error is surfaced.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == 0 || cfg.ClientSecret == "" {
		return nil, &Error{
			Kind:    ErrorKindMissingCredential,
			Message: "client_id and client_secret are required",
		}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "osu-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}

	tok, err := c.requestToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth token exchange: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenType = tok.TokenType

	// expires_in is informational only, the client does not refresh.
	c.logger.Info().
		Str("token_type", tok.TokenType).
		Int("expires_in", tok.ExpiresIn).
		Msg("Authenticated with osu! API")

	return c, nil
}

// GetUserBestScores fetches a user's best scores in a single request with
// the fixed page size and game mode.
func (c *Client) GetUserBestScores(ctx context.Context, userID int64) ([]Score, error) {
	query := url.Values{}
	query.Set("mode", gameMode)
	query.Set("limit", strconv.Itoa(bestScoresLimit))

	path := fmt.Sprintf("/users/%d/scores/best", userID)

	body, err := c.get(ctx, "user_best", path, query)
	if err != nil {
		return nil, err
	}

	return decodeBody[[]Score](body)
}

// GetRanking fetches pages 1..pages of the performance leaderboard
// selected by ranking and concatenates them in page order. Server
// ordering is trusted: entries are neither deduplicated nor re-sorted.
// Pages are sequential, so any page failure aborts the whole fetch.
func (c *Client) GetRanking(ctx context.Context, ranking Ranking, pages int) ([]RankingEntry, error) {
	entries := make([]RankingEntry, 0, pages*RankingPageSize)

	for page := 1; page <= pages; page++ {
		query := url.Values{}
		query.Set("cursor[page]", strconv.Itoa(page))
		if ranking.Country() != "" {
			query.Set("country", ranking.Country())
		}

		body, err := c.get(ctx, "ranking", "/rankings/"+gameMode+"/performance", query)
		if err != nil {
			return nil, fmt.Errorf("ranking page %d: %w", page, err)
		}

		resp, err := decodeBody[rankingResponse](body)
		if err != nil {
			return nil, fmt.Errorf("ranking page %d: %w", page, err)
		}

		c.logger.Debug().
			Int("page", page).
			Int("entries", len(resp.Ranking)).
			Int("total", resp.Total).
			Msg("Fetched ranking page")

		entries = append(entries, resp.Ranking...)
	}

	return entries, nil
}

// get performs an authenticated GET request and returns the raw response
// body after status classification.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	if c.token == "" {
		osuErrorsTotal.WithLabelValues(string(ErrorKindMissingCredential)).Inc()
		return nil, &Error{Kind: ErrorKindMissingCredential, Message: "no bearer token"}
	}

	link := c.config.BaseURL + path
	if len(query) > 0 {
		link += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		osuErrorsTotal.WithLabelValues(string(ErrorKindProtocol)).Inc()
		return nil, newProtocolError(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(endpoint, req)
}

// do executes a prepared request: fixed headers, timing, transport error
// wrapping, then status classification.
func (c *Client) do(endpoint string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	defer func() {
		osuRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		osuErrorsTotal.WithLabelValues(string(ErrorKindTransport)).Inc()
		osuRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	osuRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := c.classify(resp)
	if err != nil {
		osuErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_kind", string(KindOf(err))).
			Msg("osu! API request error")
		return nil, err
	}

	return body, nil
}

// classify maps the response status to the error taxonomy. The mapping is
// exact: 200 succeeds, 400/429/503 map to their dedicated kinds no matter
// what the body holds, and any other status is expected to carry a
// structured error body. If that body does not decode, the raw bytes are
// preserved in a decode error rather than dropped.
func (c *Client) classify(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("read body: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusBadRequest:
		return nil, &Error{Kind: ErrorKindBadRequest}
	case http.StatusTooManyRequests:
		return nil, &Error{Kind: ErrorKindRateLimited}
	case http.StatusServiceUnavailable:
		return nil, &Error{Kind: ErrorKindServiceUnavailable}
	}

	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return nil, newDecodeError(err, body)
	}

	return nil, &Error{Kind: ErrorKindAPI, Message: apiErr.Error}
}

// requestToken performs the OAuth2 client-credentials exchange.
func (c *Client) requestToken(ctx context.Context) (*tokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     strconv.Itoa(c.config.ClientID),
		"client_secret": c.config.ClientSecret,
		"grant_type":    "client_credentials",
		"scope":         "public",
	})
	if err != nil {
		return nil, newProtocolError(fmt.Errorf("encode token request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, newProtocolError(fmt.Errorf("create token request: %w", err))
	}

	body, err := c.do("oauth", req)
	if err != nil {
		return nil, err
	}

	tok, err := decodeBody[tokenResponse](body)
	if err != nil {
		return nil, err
	}

	return &tok, nil
}

// decodeBody unmarshals a successful response body. A 200 response whose
// body does not match the schema is a decode error carrying the original
// bytes, never an API error.
func decodeBody[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, newDecodeError(err, body)
	}
	return v, nil
}
