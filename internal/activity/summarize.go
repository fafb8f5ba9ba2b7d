package activity

import (
	"math/big"
	"slices"
	"strings"

	"github.com/matrixise/wallet-activity/internal/cache"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Input is everything a merge pass reads. Summarize never mutates it.
type Input struct {
	Transactions  []wallet.TransactionRecord
	Networks      map[wallet.CoinType]wallet.NetworkInfo
	Accounts      []wallet.AccountInfo
	VisibleTokens []wallet.Token
	AllTokens     []wallet.Token
	Prices        map[string]cache.Price
	Fees          map[string]uint64
	Currency      string
}

// Summarize joins transactions with account, token, network, price and fee data.
//
// Rejected transactions, transactions of a coin without a resolved network and
// transactions recorded on another chain than the coin's selected network are dropped. The result is sorted by created time, newest first; transactions with
// equal timestamps keep their input order.
func Summarize(in Input) []TransactionSummary {
	kept := lo.Filter(in.Transactions, func(tx wallet.TransactionRecord, _ int) bool {
		if tx.Status == wallet.StatusRejected {
			return false
		}
		network, ok := in.Networks[tx.Coin]
		return ok && onSelectedChain(tx, network)
	})

	summaries := lo.Map(kept, func(tx wallet.TransactionRecord, _ int) TransactionSummary {
		return summarizeOne(in, tx, in.Networks[tx.Coin])
	})

	slices.SortStableFunc(summaries, func(a, b TransactionSummary) int {
		return b.CreatedTime.Compare(a.CreatedTime)
	})
	return summaries
}

// onSelectedChain reports whether tx belongs to network. Records without a chain id
// are attributed to the selected network.
func onSelectedChain(tx wallet.TransactionRecord, network wallet.NetworkInfo) bool {
	return tx.ChainID == "" || strings.EqualFold(tx.ChainID, network.ChainID)
}

func summarizeOne(in Input, tx wallet.TransactionRecord, network wallet.NetworkInfo) TransactionSummary {
	s := TransactionSummary{
		TxID:        tx.ID,
		Coin:        tx.Coin.String(),
		Type:        tx.Type,
		Status:      tx.Status,
		CreatedTime: tx.CreatedTime,
		NetworkName: network.Name,
		FromAddress: tx.From,
		FromName:    accountName(in.Accounts, tx.Coin, tx.From),
		ToAddress:   tx.To,
		ToName:      accountName(in.Accounts, tx.Coin, tx.To),
		Record:      tx,
	}

	if token, ok := resolveToken(in, tx, network); ok {
		s.Symbol = token.Symbol
		if tx.Value != nil {
			amount := wallet.ToDecimal(tx.Value, token.Decimals)
			s.Amount = amount.String()
			if !token.IsNFT {
				s.FiatValue = fiatValue(in, token.AssetRatioID(), amount)
			}
		}
	}

	if fee := transactionFee(in, tx); fee != nil {
		amount := wallet.ToDecimal(fee, network.Decimals)
		s.Fee = amount.String()
		s.FeeSymbol = network.Symbol
		s.FeeFiat = fiatValue(in, network.NativeToken().AssetRatioID(), amount)
	}
	return s
}

// resolveToken finds the asset a transaction moves: visible tokens first, then all
// known tokens, then the network's native asset when the record names no contract.
func resolveToken(in Input, tx wallet.TransactionRecord, network wallet.NetworkInfo) (wallet.Token, bool) {
	if tx.ContractAddress == "" {
		return network.NativeToken(), true
	}

	matches := func(t wallet.Token) bool {
		return t.Coin == tx.Coin &&
			t.ChainID == network.ChainID &&
			wallet.SameAddress(tx.Coin, t.ContractAddress, tx.ContractAddress)
	}
	if token, ok := lo.Find(in.VisibleTokens, matches); ok {
		return token, true
	}
	return lo.Find(in.AllTokens, matches)
}

// transactionFee is the static gas fee when the record carries one, else the cached estimate
func transactionFee(in Input, tx wallet.TransactionRecord) *big.Int {
	if fee := wallet.StaticFee(tx); fee != nil {
		return fee
	}
	if fee, ok := in.Fees[tx.ID]; ok {
		return new(big.Int).SetUint64(fee)
	}
	return nil
}

func fiatValue(in Input, ratioID string, amount decimal.Decimal) string {
	price, ok := in.Prices[ratioID]
	if !ok || price.Currency != in.Currency {
		return ""
	}
	return FormatFiat(amount.Mul(decimal.NewFromFloat(price.Value)), in.Currency)
}

func accountName(accounts []wallet.AccountInfo, coin wallet.CoinType, address string) string {
	if address == "" {
		return ""
	}
	account, ok := lo.Find(accounts, func(a wallet.AccountInfo) bool {
		return a.Coin == coin && wallet.SameAddress(coin, a.Address, address)
	})
	if !ok {
		return ""
	}
	return account.Name
}
