package activity

import (
	"context"
	"errors"
	"sync"

	"github.com/matrixise/wallet-activity/internal/wallet"
)

var (
	ethMainnet = wallet.NetworkInfo{Coin: wallet.CoinETH, ChainID: "0x1", Name: "Ethereum Mainnet", Symbol: "ETH", Decimals: 18, CoingeckoID: "ethereum"}
	solMainnet = wallet.NetworkInfo{Coin: wallet.CoinSOL, ChainID: "0x65", Name: "Solana Mainnet", Symbol: "SOL", Decimals: 9, CoingeckoID: "solana"}
	filMainnet = wallet.NetworkInfo{Coin: wallet.CoinFIL, ChainID: "f", Name: "Filecoin Mainnet", Symbol: "FIL", Decimals: 18, CoingeckoID: "filecoin"}
)

type fakeKeyrings struct {
	keyrings []wallet.Keyring
	err      error
}

func (f *fakeKeyrings) Keyrings(_ context.Context, coins []wallet.CoinType) ([]wallet.Keyring, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []wallet.Keyring
	for _, k := range f.keyrings {
		for _, c := range coins {
			if k.Coin == c {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

type fakeNetworks struct {
	networks map[wallet.CoinType]wallet.NetworkInfo
}

func (f *fakeNetworks) SelectedNetwork(_ context.Context, coin wallet.CoinType) (wallet.NetworkInfo, error) {
	n, ok := f.networks[coin]
	if !ok {
		return wallet.NetworkInfo{}, errors.New("network unavailable")
	}
	return n, nil
}

// fakeTransactions returns the result of next for every call
type fakeTransactions struct {
	mu    sync.Mutex
	calls int
	next  func(call int) []wallet.TransactionRecord
	err   error
}

func (f *fakeTransactions) AllTransactions(context.Context, []wallet.Keyring) ([]wallet.TransactionRecord, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.next(call), nil
}

func staticTransactions(txs ...wallet.TransactionRecord) *fakeTransactions {
	return &fakeTransactions{next: func(int) []wallet.TransactionRecord { return txs }}
}

type fakeAssets struct {
	visible []wallet.Token
	all     []wallet.Token
}

func (f *fakeAssets) VisibleAssets(_ context.Context, networks []wallet.NetworkInfo) ([]wallet.Token, error) {
	out := append([]wallet.Token{}, f.visible...)
	for _, n := range networks {
		out = append(out, n.NativeToken())
	}
	return out, nil
}

func (f *fakeAssets) AllTokens(context.Context, []wallet.NetworkInfo) ([]wallet.Token, error) {
	return f.all, nil
}

type priceCall struct {
	ids      []string
	currency string
}

type fakePrices struct {
	mu      sync.Mutex
	quotes  map[string]map[string]float64 // currency -> id -> price
	calls   []priceCall
	err     error
	partial bool // return known quotes alongside err
}

func (f *fakePrices) FetchPrices(_ context.Context, ids []string, currency string, _ Timeframe) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, priceCall{ids: ids, currency: currency})
	if f.err != nil && !f.partial {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if p, ok := f.quotes[currency][id]; ok {
			out[id] = p
		}
	}
	return out, f.err
}

func (f *fakePrices) Calls() []priceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]priceCall{}, f.calls...)
}

type fakeFees struct {
	mu    sync.Mutex
	fees  map[string]uint64
	calls [][]string
}

func (f *fakeFees) EstimatedFees(_ context.Context, ids []string) (map[string]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ids)
	out := make(map[string]uint64)
	for _, id := range ids {
		if fee, ok := f.fees[id]; ok {
			out[id] = fee
		}
	}
	return out, nil
}

// blockingFees signals entered and waits for release when asked for block
type blockingFees struct {
	block   string
	entered chan struct{}
	release chan struct{}
	fees    map[string]uint64
}

func (f *blockingFees) EstimatedFees(_ context.Context, ids []string) (map[string]uint64, error) {
	for _, id := range ids {
		if id == f.block {
			close(f.entered)
			<-f.release
		}
	}
	out := make(map[string]uint64)
	for _, id := range ids {
		if fee, ok := f.fees[id]; ok {
			out[id] = fee
		}
	}
	return out, nil
}

type fakeCurrency struct {
	code string
	err  error
}

func (f *fakeCurrency) DefaultCurrency(context.Context) (string, error) {
	return f.code, f.err
}
