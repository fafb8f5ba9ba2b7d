package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matrixise/wallet-activity/internal/cache"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
)

var (
	// ErrNotDisplayable is returned when a record produces no summary (rejected status
	// or a chain other than the selected network)
	ErrNotDisplayable = errors.New("transaction is not displayable")
	// ErrUnknownTransaction is returned for ids absent from the latest snapshot
	ErrUnknownTransaction = errors.New("unknown transaction")
)

// Details is the view-model of a single transaction. It is built on demand and holds
// no cached state; Load fetches everything it needs.
type Details struct {
	Record   wallet.TransactionRecord
	services Services
	currency string
	logger   *slog.Logger
}

// Load summarizes the record with freshly fetched account, token, price and fee data
func (d *Details) Load(ctx context.Context) (TransactionSummary, error) {
	coin := d.Record.Coin
	network, err := d.services.Networks.SelectedNetwork(ctx, coin)
	if err != nil {
		return TransactionSummary{}, fmt.Errorf("selected network for %s: %w", coin, err)
	}
	networks := []wallet.NetworkInfo{network}
	in := Input{
		Transactions: []wallet.TransactionRecord{d.Record},
		Networks:     map[wallet.CoinType]wallet.NetworkInfo{coin: network},
		Currency:     d.currency,
	}

	if keyrings, err := d.services.Keyrings.Keyrings(ctx, []wallet.CoinType{coin}); err != nil {
		d.logger.Warn("Keyrings unavailable for details", "tx_id", d.Record.ID, "error", err)
	} else {
		in.Accounts = lo.FlatMap(keyrings, func(k wallet.Keyring, _ int) []wallet.AccountInfo { return k.Accounts })
	}
	if tokens, err := d.services.Assets.VisibleAssets(ctx, networks); err == nil {
		in.VisibleTokens = tokens
	}
	if tokens, err := d.services.Assets.AllTokens(ctx, networks); err == nil {
		in.AllTokens = tokens
	}

	if estimator, ok := d.services.FeeEstimators[coin]; ok && wallet.StaticFee(d.Record) == nil {
		if fees, err := estimator.EstimatedFees(ctx, []string{d.Record.ID}); err != nil {
			d.logger.Warn("Fee estimate unavailable for details", "tx_id", d.Record.ID, "error", err)
		} else {
			in.Fees = fees
		}
	}

	if d.services.Prices != nil {
		ids := []string{network.NativeToken().AssetRatioID()}
		if token, ok := resolveToken(in, d.Record, network); ok {
			ids = lo.Uniq(append(ids, token.AssetRatioID()))
		}
		quotes, err := d.services.Prices.FetchPrices(ctx, ids, d.currency, OneDay)
		if err != nil {
			d.logger.Warn("Prices unavailable for details", "tx_id", d.Record.ID, "error", err)
		} else {
			prices := cache.NewPriceCache()
			cache.MergePrices(prices, quotes, d.currency)
			in.Prices = prices.Snapshot()
		}
	}

	summaries := Summarize(in)
	if len(summaries) == 0 {
		return TransactionSummary{}, ErrNotDisplayable
	}
	return summaries[0], nil
}
