// Package pricing quotes asset prices from the CoinGecko API.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.coingecko.com/api/v3"
	headerAPIKey        = "x-cg-demo-api-key"
	defaultTimeout      = 10 * time.Second
	rateLimitRetryAfter = 60 * time.Second
	// maxIDsPerRequest keeps the query string well under CoinGecko's URL limit
	maxIDsPerRequest = 250
)

// Config configures a Client
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
	Logger            *slog.Logger
}

// Client is a CoinGecko price oracle
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a CoinGecko client. A zero RequestsPerMinute disables client-side
// rate limiting.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     cfg.Logger,
	}
}

// FetchPrices returns the spot price of each id in currency. Ids unknown to CoinGecko
// are absent from the result. When a chunk fails the error is returned together with
// the prices of the chunks that succeeded. The simple price endpoint has no history, so timeframe
// only has to be one the wallet knows.
func (c *Client) FetchPrices(ctx context.Context, ids []string, currency string, timeframe activity.Timeframe) (map[string]float64, error) {
	if !validTimeframe(timeframe) {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	ids = lo.Uniq(lo.Compact(ids))
	result := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	slices.Sort(ids)

	var errs []error
	for i, chunk := range lo.Chunk(ids, maxIDsPerRequest) {
		prices, err := c.simplePrice(ctx, chunk, currency)
		if err != nil {
			c.logger.Warn("Price chunk failed", "chunk", i, "ids", len(chunk), "error", err)
			errs = append(errs, err)
			// later chunks would hit the same limit or cancelled context
			if IsRateLimitError(err) || ctx.Err() != nil {
				break
			}
			continue
		}
		for id, price := range prices {
			result[id] = price
		}
	}

	c.logger.Debug("Fetched prices", "requested", len(ids), "quoted", len(result), "currency", currency)
	return result, errors.Join(errs...)
}

func (c *Client) simplePrice(ctx context.Context, ids []string, currency string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", currency)
	params.Set("precision", "8")

	reqURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			Message:    "CoinGecko API rate limit exceeded",
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for id, quotes := range raw {
		if price, ok := quotes[currency]; ok {
			prices[id] = price
		}
	}
	return prices, nil
}

func validTimeframe(tf activity.Timeframe) bool {
	switch tf {
	case activity.OneDay, activity.OneWeek, activity.OneMonth, activity.AllTime:
		return true
	}
	return false
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return rateLimitRetryAfter
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err != nil || seconds <= 0 {
		return rateLimitRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

// RateLimitError is returned when CoinGecko answers 429
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError reports whether err is or wraps a RateLimitError
func IsRateLimitError(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
