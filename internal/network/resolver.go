package network

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matrixise/wallet-activity/internal/wallet"
	"golang.org/x/sync/errgroup"
)

// Provider returns the selected network of a coin type
type Provider interface {
	SelectedNetwork(ctx context.Context, coin wallet.CoinType) (wallet.NetworkInfo, error)
}

// Resolver looks up the selected network of every supported coin concurrently
type Resolver struct {
	provider Provider
	logger   *slog.Logger
}

// NewResolver creates a resolver backed by provider
func NewResolver(provider Provider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: provider, logger: logger}
}

// Resolve returns the selected network for each coin. A coin whose lookup fails is
// left out of the result; the other lookups are not affected.
func (r *Resolver) Resolve(ctx context.Context, coins []wallet.CoinType) map[wallet.CoinType]wallet.NetworkInfo {
	resolved := make(map[wallet.CoinType]wallet.NetworkInfo, len(coins))
	var mu sync.Mutex
	var g errgroup.Group

	for _, coin := range coins {
		g.Go(func() error {
			network, err := r.provider.SelectedNetwork(ctx, coin)
			if err != nil {
				r.logger.Warn("Selected network lookup failed, excluding coin from refresh",
					"coin", coin.String(), "error", err)
				return nil
			}

			mu.Lock()
			resolved[coin] = network
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return resolved
}
