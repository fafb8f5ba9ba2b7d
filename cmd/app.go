package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/blockchain"
	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/events"
	"github.com/matrixise/wallet-activity/internal/metrics"
	"github.com/matrixise/wallet-activity/internal/pricing"
	"github.com/matrixise/wallet-activity/internal/registry"
	"github.com/matrixise/wallet-activity/internal/storage"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the collaborators shared by the run and activity commands
type app struct {
	cfg      *config.Config
	bus      *events.Bus
	registry *registry.Registry
	db       *storage.Store
	solana   *blockchain.Client // nil when Solana fee estimation is disabled
	metrics  *prometheus.Registry
	store    *activity.Store
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, databaseURL string, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		bus:     events.NewBus(),
		metrics: prometheus.NewRegistry(),
		logger:  logger,
	}
	a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reg, err := registry.New(cfg, a.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	a.registry = reg

	db, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.db = db
	logger.Info("PostgreSQL connection established")

	prices := pricing.NewClient(pricing.Config{
		BaseURL:           cfg.PriceOracle.BaseURL,
		APIKey:            cfg.PriceOracle.APIKey,
		RequestsPerMinute: cfg.PriceOracle.RequestsPerMinute,
		Timeout:           parseDuration(cfg.PriceOracle.Timeout),
		Logger:            logger,
	})

	estimators := make(map[wallet.CoinType]activity.FeeEstimator)
	if len(cfg.Solana.RPCUrls) > 0 {
		failover, err := blockchain.NewFailoverClient(ctx, cfg.Solana.RPCUrls, blockchain.SolanaHealth, logger)
		if err != nil {
			// fees of Solana transactions stay blank until restart
			logger.Warn("Solana fee estimation disabled", "error", err)
		} else {
			a.solana = blockchain.NewClient(failover, parseDuration(cfg.Solana.Timeout))
			estimators[wallet.CoinSOL] = blockchain.NewSolanaFeeEstimator(a.solana, db, logger)
			logger.Info("Solana RPC connection established", "endpoints", len(cfg.Solana.RPCUrls))
		}
	}

	a.store = activity.NewStore(activity.Services{
		Keyrings:      reg,
		Networks:      reg,
		Transactions:  db,
		Assets:        reg,
		Prices:        prices,
		Currency:      reg,
		FeeEstimators: estimators,
	},
		activity.WithLogger(logger),
		activity.WithMetrics(metrics.NewRefresh(a.metrics)),
		activity.WithCoins(cfg.Coins()),
	)
	return a, nil
}

// close stops the store before releasing the connections it reads from
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.solana != nil {
		a.solana.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseDuration reads a validated duration; empty means zero
func parseDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
