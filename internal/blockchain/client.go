// Package blockchain talks JSON-RPC to chain nodes with endpoint failover.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const (
	defaultRPCTimeout = 10 * time.Second
	maxRetries        = 3
)

// Client runs JSON-RPC calls with retries, backoff and failover
type Client struct {
	failover      *FailoverClient
	timeout       time.Duration
	retryInterval time.Duration
}

// NewClient wraps a failover client. A zero timeout uses the default RPC timeout.
func NewClient(failover *FailoverClient, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	return &Client{
		failover:      failover,
		timeout:       timeout,
		retryInterval: 500 * time.Millisecond,
	}
}

// Endpoints reports endpoint health
func (c *Client) Endpoints() []EndpointHealth {
	return c.failover.Endpoints()
}

// Close closes all RPC connections
func (c *Client) Close() {
	c.failover.Close()
}

// Call runs fn against a healthy endpoint. A failing endpoint is marked unhealthy and the
// next attempt, after exponential backoff, goes to another endpoint when one is left.
func (c *Client) Call(ctx context.Context, fn func(ctx context.Context, client *rpc.Client) error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := c.retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		client, url, err := c.failover.GetClient(ctx)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrNoHealthyEndpoint) {
				break
			}
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = fn(callCtx, client)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		c.failover.MarkUnhealthy(url, err)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
