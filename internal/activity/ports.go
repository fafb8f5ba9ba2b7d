package activity

import (
	"context"

	"github.com/matrixise/wallet-activity/internal/wallet"
)

// KeyringService returns the accounts of every requested coin
type KeyringService interface {
	Keyrings(ctx context.Context, coins []wallet.CoinType) ([]wallet.Keyring, error)
}

// NetworkService returns the selected network of a coin
type NetworkService interface {
	SelectedNetwork(ctx context.Context, coin wallet.CoinType) (wallet.NetworkInfo, error)
}

// TransactionService returns every transaction of the given keyrings
type TransactionService interface {
	AllTransactions(ctx context.Context, keyrings []wallet.Keyring) ([]wallet.TransactionRecord, error)
}

// AssetRegistry lists tokens of the resolved networks
type AssetRegistry interface {
	VisibleAssets(ctx context.Context, networks []wallet.NetworkInfo) ([]wallet.Token, error)
	AllTokens(ctx context.Context, networks []wallet.NetworkInfo) ([]wallet.Token, error)
}

// Timeframe is the price history window requested from the oracle
type Timeframe string

const (
	OneDay   Timeframe = "1d"
	OneWeek  Timeframe = "7d"
	OneMonth Timeframe = "30d"
	AllTime  Timeframe = "all"
)

// PriceOracle quotes asset prices by ratio id
type PriceOracle interface {
	FetchPrices(ctx context.Context, ids []string, currency string, timeframe Timeframe) (map[string]float64, error)
}

// FeeEstimator estimates fees of transactions whose fee is not derivable from the record
type FeeEstimator interface {
	EstimatedFees(ctx context.Context, txIDs []string) (map[string]uint64, error)
}

// CurrencySettings provides the process-wide fiat currency
type CurrencySettings interface {
	DefaultCurrency(ctx context.Context) (string, error)
}

// Services bundles the collaborators a Store reads from
type Services struct {
	Keyrings     KeyringService
	Networks     NetworkService
	Transactions TransactionService
	Assets       AssetRegistry
	Prices       PriceOracle
	Currency     CurrencySettings
	// FeeEstimators maps coins needing dynamic fee estimation to their estimator
	FeeEstimators map[wallet.CoinType]FeeEstimator
}
