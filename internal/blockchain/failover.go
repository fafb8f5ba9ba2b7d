package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const (
	unhealthyDuration  = 5 * time.Minute // cooldown before an unhealthy endpoint is probed again
	healthCheckTimeout = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every configured endpoint is down or cooling off
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

// Prober checks that a freshly dialed endpoint answers requests
type Prober func(ctx context.Context, client *rpc.Client) error

// SolanaHealth probes a Solana node with getHealth
func SolanaHealth(ctx context.Context, client *rpc.Client) error {
	var status string
	if err := client.CallContext(ctx, &status, "getHealth"); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("node reports %q", status)
	}
	return nil
}

// EndpointHealth is a point-in-time view of one endpoint
type EndpointHealth struct {
	URL           string    `json:"url"`
	Healthy       bool      `json:"healthy"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
}

type endpoint struct {
	mu            sync.RWMutex
	url           string
	client        *rpc.Client
	healthy       bool
	lastError     error
	lastErrorTime time.Time
}

// FailoverClient spreads JSON-RPC calls over several endpoints, skipping unhealthy ones
type FailoverClient struct {
	mu        sync.Mutex
	endpoints []*endpoint
	current   int
	probe     Prober
	logger    *slog.Logger
}

// NewFailoverClient dials every url and probes it. At least one endpoint must answer.
func NewFailoverClient(ctx context.Context, urls []string, probe Prober, logger *slog.Logger) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fc := &FailoverClient{
		endpoints: make([]*endpoint, 0, len(urls)),
		probe:     probe,
		logger:    logger,
	}

	healthy := 0
	for _, url := range urls {
		client, err := fc.connect(ctx, url)
		ep := &endpoint{url: url, client: client, healthy: err == nil}
		if err != nil {
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			logger.Warn("Failed to connect to RPC endpoint, will retry later", "url", url, "error", err)
		} else {
			healthy++
			logger.Info("Connected to RPC endpoint", "url", url)
		}
		fc.endpoints = append(fc.endpoints, ep)
	}

	if healthy == 0 {
		fc.Close()
		return nil, ErrNoHealthyEndpoint
	}
	return fc, nil
}

func (fc *FailoverClient) connect(ctx context.Context, url string) (*rpc.Client, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	if fc.probe == nil {
		return client, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := fc.probe(probeCtx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// GetClient returns the first healthy client in round-robin order starting from the
// last one used. Unhealthy endpoints whose cooldown expired are reconnected on the way.
func (fc *FailoverClient) GetClient(ctx context.Context) (*rpc.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.endpoints {
		idx := (fc.current + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		client, healthy := ep.client, ep.healthy
		canRetry := time.Since(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.current = idx
			return client, ep.url, nil
		}
		if !canRetry {
			continue
		}

		reconnected, err := fc.connect(ctx, ep.url)
		ep.mu.Lock()
		if err != nil {
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			ep.mu.Unlock()
			continue
		}
		ep.client = reconnected
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()

		fc.current = idx
		fc.logger.Info("Reconnected to RPC endpoint", "url", ep.url)
		return reconnected, ep.url, nil
	}

	return nil, "", ErrNoHealthyEndpoint
}

// MarkUnhealthy takes url out of rotation until its cooldown expires
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		if ep.url != url {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.lastErrorTime = time.Now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		fc.logger.Warn("Marked RPC endpoint as unhealthy, will retry after cooldown",
			"url", url,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// Endpoints reports the health of every endpoint in configuration order
func (fc *FailoverClient) Endpoints() []EndpointHealth {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	out := make([]EndpointHealth, 0, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		h := EndpointHealth{URL: ep.url, Healthy: ep.healthy, LastErrorTime: ep.lastErrorTime}
		if ep.lastError != nil {
			h.LastError = ep.lastError.Error()
		}
		ep.mu.RUnlock()
		out = append(out, h)
	}
	return out
}

// Close closes every open connection
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
