package events

import (
	"sync"

	"github.com/matrixise/wallet-activity/internal/wallet"
)

// Kind tags a wallet change notification
type Kind string

const (
	// Keyring service notifications
	KeyringCreated         Kind = "keyring_created"
	KeyringRestored        Kind = "keyring_restored"
	KeyringReset           Kind = "keyring_reset"
	Locked                 Kind = "locked"
	Unlocked               Kind = "unlocked"
	BackedUp               Kind = "backed_up"
	AccountsChanged        Kind = "accounts_changed"
	AccountsAdded          Kind = "accounts_added"
	AutoLockMinutesChanged Kind = "auto_lock_minutes_changed"
	SelectedAccountChanged Kind = "selected_account_changed"

	// Transaction service notifications
	NewUnapprovedTx          Kind = "new_unapproved_tx"
	UnapprovedTxUpdated      Kind = "unapproved_tx_updated"
	TransactionStatusChanged Kind = "transaction_status_changed"
	TxServiceReset           Kind = "tx_service_reset"

	// Settings notifications
	CurrencyChanged Kind = "currency_changed"
)

var knownKinds = map[Kind]struct{}{
	KeyringCreated: {}, KeyringRestored: {}, KeyringReset: {}, Locked: {}, Unlocked: {},
	BackedUp: {}, AccountsChanged: {}, AccountsAdded: {}, AutoLockMinutesChanged: {},
	SelectedAccountChanged: {}, NewUnapprovedTx: {}, UnapprovedTxUpdated: {},
	TransactionStatusChanged: {}, TxServiceReset: {}, CurrencyChanged: {},
}

// Known reports whether k is one of the defined event kinds
func (k Kind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

// Event is a single change notification
type Event struct {
	Kind      Kind            `json:"kind"`
	Coin      wallet.CoinType `json:"coin,omitempty"`
	KeyringID string          `json:"keyringId,omitempty"`
	Addresses []string        `json:"addresses,omitempty"`
	TxID      string          `json:"txId,omitempty"`
	Currency  string          `json:"currency,omitempty"`
}

// Handler receives published events
type Handler func(Event)

// Bus dispatches events synchronously to every subscriber
type Bus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to all current subscribers
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
