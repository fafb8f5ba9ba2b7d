// Package registry serves the wallet's accounts, networks, tokens and currency setting
// from configuration, and announces changes made at runtime on the event bus.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/events"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
)

var (
	// ErrUnknownCoin is returned for coins with no configured network
	ErrUnknownCoin = errors.New("unknown coin")
	// ErrNoSelectedNetwork is returned when a coin has networks but none is selected
	ErrNoSelectedNetwork = errors.New("no selected network")
	// ErrDuplicateAccount is returned when adding an address that already exists
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidCurrency is returned for codes that are not three letters
	ErrInvalidCurrency = errors.New("invalid currency code")
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

// Registry is an in-memory, config-seeded wallet state
type Registry struct {
	mu       sync.RWMutex
	networks []wallet.NetworkInfo
	selected map[wallet.CoinType]string // coin -> chain id
	tokens   []wallet.Token
	accounts map[wallet.CoinType][]wallet.AccountInfo
	currency string

	bus    events.Publisher
	logger *slog.Logger
}

// New creates a registry from configuration. bus may be nil.
func New(cfg *config.Config, bus events.Publisher, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		selected: make(map[wallet.CoinType]string),
		accounts: make(map[wallet.CoinType][]wallet.AccountInfo),
		currency: cfg.DefaultCurrency(),
		bus:      bus,
		logger:   logger,
	}

	for _, n := range cfg.Networks {
		coin, err := wallet.ParseCoinType(n.Coin)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}
		r.networks = append(r.networks, wallet.NetworkInfo{
			Coin:        coin,
			ChainID:     n.ChainID,
			Name:        n.Name,
			Symbol:      n.Symbol,
			Decimals:    n.Decimals,
			CoingeckoID: n.CoingeckoID,
		})
		if n.Selected {
			r.selected[coin] = n.ChainID
		}
	}

	for _, a := range cfg.Accounts {
		coin, err := wallet.ParseCoinType(a.Coin)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Name, err)
		}
		r.accounts[coin] = append(r.accounts[coin], wallet.AccountInfo{Coin: coin, Name: a.Name, Address: a.Address})
	}

	for _, t := range cfg.Tokens {
		coin, err := wallet.ParseCoinType(t.Coin)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", t.Symbol, err)
		}
		r.tokens = append(r.tokens, wallet.Token{
			Coin:            coin,
			ChainID:         t.ChainID,
			ContractAddress: t.ContractAddress,
			Name:            t.Name,
			Symbol:          t.Symbol,
			Decimals:        t.Decimals,
			CoingeckoID:     t.CoingeckoID,
			Visible:         t.Visible,
			IsNFT:           t.NFT,
		})
	}

	return r, nil
}

// SelectedNetwork returns the selected network of coin
func (r *Registry) SelectedNetwork(_ context.Context, coin wallet.CoinType) (wallet.NetworkInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := lo.Filter(r.networks, func(n wallet.NetworkInfo, _ int) bool { return n.Coin == coin })
	if len(candidates) == 0 {
		return wallet.NetworkInfo{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}
	chainID, ok := r.selected[coin]
	if !ok {
		return wallet.NetworkInfo{}, fmt.Errorf("%w for %s", ErrNoSelectedNetwork, coin)
	}
	network, ok := lo.Find(candidates, func(n wallet.NetworkInfo) bool { return n.ChainID == chainID })
	if !ok {
		return wallet.NetworkInfo{}, fmt.Errorf("%w for %s", ErrNoSelectedNetwork, coin)
	}
	return network, nil
}

// Networks returns every configured network
func (r *Registry) Networks() []wallet.NetworkInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]wallet.NetworkInfo(nil), r.networks...)
}

// Keyrings returns one keyring per requested coin that has accounts
func (r *Registry) Keyrings(_ context.Context, coins []wallet.CoinType) ([]wallet.Keyring, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keyrings := make([]wallet.Keyring, 0, len(coins))
	for _, coin := range coins {
		accounts := r.accounts[coin]
		if len(accounts) == 0 {
			continue
		}
		keyrings = append(keyrings, wallet.Keyring{
			Coin:     coin,
			Accounts: append([]wallet.AccountInfo(nil), accounts...),
		})
	}
	return keyrings, nil
}

// AddAccount registers a new account and publishes an accounts added event
func (r *Registry) AddAccount(_ context.Context, account wallet.AccountInfo) error {
	account.Address = strings.TrimSpace(account.Address)
	if account.Address == "" {
		return errors.New("account address is required")
	}

	r.mu.Lock()
	if !lo.ContainsBy(r.networks, func(n wallet.NetworkInfo) bool { return n.Coin == account.Coin }) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCoin, account.Coin)
	}
	exists := lo.ContainsBy(r.accounts[account.Coin], func(a wallet.AccountInfo) bool {
		return wallet.SameAddress(account.Coin, a.Address, account.Address)
	})
	if exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Address)
	}
	if account.Name == "" {
		account.Name = fmt.Sprintf("%s Account %d", strings.ToUpper(account.Coin.String()), len(r.accounts[account.Coin])+1)
	}
	r.accounts[account.Coin] = append(r.accounts[account.Coin], account)
	r.mu.Unlock()

	r.logger.Info("Account added", "coin", account.Coin.String(), "name", account.Name)
	r.publish(events.Event{Kind: events.AccountsAdded, Coin: account.Coin, Addresses: []string{account.Address}})
	return nil
}

// VisibleAssets returns the native asset of each network plus its visible tokens
func (r *Registry) VisibleAssets(_ context.Context, networks []wallet.NetworkInfo) ([]wallet.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []wallet.Token
	for _, n := range networks {
		out = append(out, n.NativeToken())
		out = append(out, lo.Filter(r.tokens, func(t wallet.Token, _ int) bool {
			return t.Visible && onNetwork(t, n)
		})...)
	}
	return out, nil
}

// AllTokens returns every known token of the networks
func (r *Registry) AllTokens(_ context.Context, networks []wallet.NetworkInfo) ([]wallet.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []wallet.Token
	for _, n := range networks {
		out = append(out, lo.Filter(r.tokens, func(t wallet.Token, _ int) bool { return onNetwork(t, n) })...)
	}
	return out, nil
}

func onNetwork(t wallet.Token, n wallet.NetworkInfo) bool {
	return t.Coin == n.Coin && t.ChainID == n.ChainID
}

// DefaultCurrency returns the process-wide fiat currency
func (r *Registry) DefaultCurrency(context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currency, nil
}

// SetDefaultCurrency changes the currency and publishes a currency changed event when
// the code differs from the current one
func (r *Registry) SetDefaultCurrency(_ context.Context, code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if !currencyPattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}

	r.mu.Lock()
	changed := r.currency != code
	r.currency = code
	r.mu.Unlock()

	if changed {
		r.logger.Info("Default currency changed", "currency", code)
		r.publish(events.Event{Kind: events.CurrencyChanged, Currency: code})
	}
	return nil
}

func (r *Registry) publish(e events.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
