package activity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matrixise/wallet-activity/internal/events"
)

// Refresher is the part of a Store the observer drives
type Refresher interface {
	Refresh() uint64
	SetCurrency(code string) (uint64, bool)
}

// EventSource is where wallet change notifications come from
type EventSource interface {
	Subscribe(h events.Handler) (unsubscribe func())
}

var refreshKinds = map[events.Kind]struct{}{
	events.AccountsChanged:          {},
	events.AccountsAdded:            {},
	events.NewUnapprovedTx:          {},
	events.UnapprovedTxUpdated:      {},
	events.TransactionStatusChanged: {},
	events.TxServiceReset:           {},
}

// Observer turns wallet change notifications into refreshes
type Observer struct {
	target   Refresher
	settings CurrencySettings
	logger   *slog.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// NewObserver creates an observer driving target. settings is read when a currency
// change event carries no code; it may be nil.
func NewObserver(target Refresher, settings CurrencySettings, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{target: target, settings: settings, logger: logger}
}

// Attach subscribes to source, replacing any previous subscription
func (o *Observer) Attach(source EventSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	o.unsubscribe = source.Subscribe(o.Handle)
}

// Detach ends the subscription
func (o *Observer) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
}

// Handle reacts to one event
func (o *Observer) Handle(e events.Event) {
	if _, ok := refreshKinds[e.Kind]; ok {
		gen := o.target.Refresh()
		o.logger.Debug("Refresh triggered by event", "kind", e.Kind, "generation", gen)
		return
	}

	if e.Kind != events.CurrencyChanged {
		return
	}
	code := e.Currency
	if code == "" && o.settings != nil {
		c, err := o.settings.DefaultCurrency(context.Background())
		if err != nil {
			o.logger.Warn("Failed to read currency after change event", "error", err)
			return
		}
		code = c
	}
	if gen, ok := o.target.SetCurrency(code); ok {
		o.logger.Debug("Refresh triggered by currency change", "currency", code, "generation", gen)
	}
}
