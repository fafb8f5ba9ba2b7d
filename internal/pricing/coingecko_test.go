package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, APIKey: "demo-key"})
}

func TestFetchPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum,usd-coin", r.URL.Query().Get("ids"))
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get(headerAPIKey))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ethereum":{"eur":2700.5},"usd-coin":{"eur":0.92},"ignored":{"usd":1}}`)
	})

	prices, err := client.FetchPrices(context.Background(), []string{"usd-coin", "ethereum", "ethereum", ""}, "EUR", activity.OneDay)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ethereum": 2700.5, "usd-coin": 0.92}, prices)
}

func TestFetchPricesEmptyIDs(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	prices, err := client.FetchPrices(context.Background(), nil, "usd", activity.OneDay)
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Zero(t, calls.Load())
}

func TestFetchPricesChunksRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	})

	ids := make([]string, 0, maxIDsPerRequest+1)
	for i := 0; i <= maxIDsPerRequest; i++ {
		ids = append(ids, fmt.Sprintf("asset-%03d", i))
	}

	_, err := client.FetchPrices(context.Background(), ids, "usd", activity.OneDay)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPricesKeepsSucceededChunks(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"asset-000":{"usd":1.5}}`)
	})

	ids := make([]string, 0, 2*maxIDsPerRequest+1)
	for i := 0; i <= 2*maxIDsPerRequest; i++ {
		ids = append(ids, fmt.Sprintf("asset-%03d", i))
	}

	prices, err := client.FetchPrices(context.Background(), ids, "usd", activity.OneDay)
	require.Error(t, err)
	assert.Equal(t, map[string]float64{"asset-000": 1.5}, prices)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPricesStopsOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{"asset-000":{"usd":2}}`)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ids := make([]string, 0, 2*maxIDsPerRequest+1)
	for i := 0; i <= 2*maxIDsPerRequest; i++ {
		ids = append(ids, fmt.Sprintf("asset-%03d", i))
	}

	prices, err := client.FetchPrices(context.Background(), ids, "usd", activity.OneDay)
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, map[string]float64{"asset-000": 2}, prices)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPricesErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		rateLimit bool
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "30")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			rateLimit: true,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `not json`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchPrices(context.Background(), []string{"ethereum"}, "usd", activity.OneDay)
			require.Error(t, err)
			assert.Equal(t, tt.rateLimit, IsRateLimitError(err))
		})
	}
}

func TestRateLimitErrorRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchPrices(context.Background(), []string{"ethereum"}, "usd", activity.OneDay)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
}

func TestFetchPricesValidatesArguments(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := client.FetchPrices(context.Background(), []string{"ethereum"}, "usd", activity.Timeframe("2h"))
	assert.Error(t, err)

	_, err = client.FetchPrices(context.Background(), []string{"ethereum"}, " ", activity.OneDay)
	assert.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, rateLimitRetryAfter, retryAfter(""))
	assert.Equal(t, rateLimitRetryAfter, retryAfter("soon"))
	assert.Equal(t, 5*time.Second, retryAfter("5"))
}
