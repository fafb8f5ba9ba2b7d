package activity

import (
	"math/big"
	"testing"
	"time"

	"github.com/matrixise/wallet-activity/internal/cache"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ethTransfer(id string, at time.Time) wallet.TransactionRecord {
	return wallet.TransactionRecord{
		ID:          id,
		Coin:        wallet.CoinETH,
		ChainID:     "0x1",
		Status:      wallet.StatusConfirmed,
		Type:        wallet.TxNativeTransfer,
		From:        "0x1111111111111111111111111111111111111111",
		To:          "0x2222222222222222222222222222222222222222",
		Value:       big.NewInt(1_500_000_000_000_000_000),
		GasLimit:    21000,
		GasPrice:    big.NewInt(1_000_000_000),
		CreatedTime: at,
	}
}

func solTransfer(id string, at time.Time) wallet.TransactionRecord {
	return wallet.TransactionRecord{
		ID:          id,
		Coin:        wallet.CoinSOL,
		ChainID:     "0x65",
		Status:      wallet.StatusSubmitted,
		Type:        wallet.TxNativeTransfer,
		From:        "Sender1111111111111111111111111111111111111",
		To:          "Receiver11111111111111111111111111111111111",
		Value:       big.NewInt(2_000_000_000),
		Message:     "AQABAg==",
		CreatedTime: at,
	}
}

func baseInput(txs ...wallet.TransactionRecord) Input {
	return Input{
		Transactions: txs,
		Networks: map[wallet.CoinType]wallet.NetworkInfo{
			wallet.CoinETH: ethMainnet,
			wallet.CoinSOL: solMainnet,
		},
		Accounts: []wallet.AccountInfo{
			{Coin: wallet.CoinETH, Name: "Account 1", Address: "0x1111111111111111111111111111111111111111"},
		},
		Currency: "usd",
	}
}

func TestSummarizeDropsRejectedAndUnresolved(t *testing.T) {
	rejected := ethTransfer("rejected", t0)
	rejected.Status = wallet.StatusRejected
	fil := ethTransfer("fil", t0)
	fil.Coin = wallet.CoinFIL

	got := Summarize(baseInput(ethTransfer("ok", t0), rejected, fil))

	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].TxID)
}

func TestSummarizeDropsRecordsFromOtherChains(t *testing.T) {
	sepolia := ethTransfer("sepolia-1", t0)
	sepolia.ChainID = "0xaa36a7"
	upper := ethTransfer("mainnet-upper", t0)
	upper.ChainID = "0X1"
	unset := ethTransfer("mainnet-unset", t0)
	unset.ChainID = ""

	in := baseInput(sepolia, upper, unset)
	in.Prices = map[string]cache.Price{"ethereum": {Value: 2000, Currency: "usd"}}
	got := Summarize(in)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"mainnet-upper", "mainnet-unset"}, []string{got[0].TxID, got[1].TxID})
	for _, s := range got {
		assert.Equal(t, "Ethereum Mainnet", s.NetworkName)
	}
}

func TestSummarizeScenarioInterimWithEmptyCaches(t *testing.T) {
	confirmed := ethTransfer("a", t0)
	rejected := solTransfer("b", t0.Add(time.Minute))
	rejected.Status = wallet.StatusRejected

	got := Summarize(baseInput(confirmed, rejected))

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].TxID)
	assert.Empty(t, got[0].FiatValue)
	assert.Empty(t, got[0].FeeFiat)
}

func TestSummarizeSortsNewestFirstAndIsStable(t *testing.T) {
	in := baseInput(
		ethTransfer("old", t0),
		ethTransfer("tie-1", t0.Add(time.Hour)),
		ethTransfer("new", t0.Add(2*time.Hour)),
		ethTransfer("tie-2", t0.Add(time.Hour)),
	)

	got := Summarize(in)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.TxID
	}
	assert.Equal(t, []string{"new", "tie-1", "tie-2", "old"}, ids)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedTime.After(got[i-1].CreatedTime))
	}
}

func TestSummarizeIsDeterministic(t *testing.T) {
	in := baseInput(
		ethTransfer("a", t0),
		solTransfer("b", t0),
		ethTransfer("c", t0.Add(time.Second)),
	)
	in.Prices = map[string]cache.Price{"ethereum": {Value: 2, Currency: "usd"}}
	in.Fees = map[string]uint64{"b": 5000}

	first := Summarize(in)
	for range 10 {
		assert.Equal(t, first, Summarize(in))
	}
}

func TestSummarizeNativeTransfer(t *testing.T) {
	in := baseInput(ethTransfer("a", t0))
	in.Prices = map[string]cache.Price{"ethereum": {Value: 100, Currency: "usd"}}

	got := Summarize(in)

	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "eth", s.Coin)
	assert.Equal(t, "Ethereum Mainnet", s.NetworkName)
	assert.Equal(t, "Account 1", s.FromName)
	assert.Empty(t, s.ToName)
	assert.Equal(t, "ETH", s.Symbol)
	assert.Equal(t, "1.5", s.Amount)
	assert.Equal(t, "$150.00", s.FiatValue)
	assert.Equal(t, "0.000021", s.Fee)
	assert.Equal(t, "ETH", s.FeeSymbol)
	assert.Equal(t, "$0.00", s.FeeFiat)
}

func TestSummarizeIgnoresPricesInOtherCurrency(t *testing.T) {
	in := baseInput(ethTransfer("a", t0))
	in.Prices = map[string]cache.Price{"ethereum": {Value: 100, Currency: "usd"}}
	in.Currency = "eur"

	got := Summarize(in)

	require.Len(t, got, 1)
	assert.Equal(t, "1.5", got[0].Amount)
	assert.Empty(t, got[0].FiatValue)
}

func TestSummarizeDynamicFeeFromCache(t *testing.T) {
	in := baseInput(solTransfer("s", t0))

	missing := Summarize(in)
	require.Len(t, missing, 1)
	assert.Empty(t, missing[0].Fee)

	in.Fees = map[string]uint64{"s": 5000}
	in.Prices = map[string]cache.Price{"solana": {Value: 100, Currency: "usd"}}
	got := Summarize(in)
	require.Len(t, got, 1)
	assert.Equal(t, "0.000005", got[0].Fee)
	assert.Equal(t, "SOL", got[0].FeeSymbol)
	assert.Equal(t, "2", got[0].Amount)
	assert.Equal(t, "$200.00", got[0].FiatValue)
}

func TestSummarizeTokenResolution(t *testing.T) {
	const contract = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	usdcVisible := wallet.Token{Coin: wallet.CoinETH, ChainID: "0x1", ContractAddress: contract, Symbol: "USDC", Decimals: 6, CoingeckoID: "usd-coin", Visible: true}
	usdcHidden := usdcVisible
	usdcHidden.Symbol = "USDC.hidden"
	usdcHidden.Visible = false

	transfer := ethTransfer("tok", t0)
	transfer.Type = wallet.TxTokenTransfer
	transfer.ContractAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	transfer.Value = big.NewInt(2_500_000)

	tests := []struct {
		name       string
		visible    []wallet.Token
		all        []wallet.Token
		wantSymbol string
		wantAmount string
	}{
		{name: "visible wins", visible: []wallet.Token{usdcVisible}, all: []wallet.Token{usdcHidden}, wantSymbol: "USDC", wantAmount: "2.5"},
		{name: "falls back to all tokens", all: []wallet.Token{usdcHidden}, wantSymbol: "USDC.hidden", wantAmount: "2.5"},
		{name: "unknown token leaves asset blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(transfer)
			in.VisibleTokens = tt.visible
			in.AllTokens = tt.all

			got := Summarize(in)

			require.Len(t, got, 1)
			assert.Equal(t, tt.wantSymbol, got[0].Symbol)
			assert.Equal(t, tt.wantAmount, got[0].Amount)
			assert.NotEmpty(t, got[0].Fee)
		})
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	assert.Empty(t, Summarize(Input{}))
}
