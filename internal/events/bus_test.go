package events

import (
	"testing"

	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	var first, second []Kind

	bus.Subscribe(func(e Event) { first = append(first, e.Kind) })
	bus.Subscribe(func(e Event) { second = append(second, e.Kind) })

	bus.Publish(Event{Kind: AccountsChanged})
	bus.Publish(Event{Kind: TxServiceReset})

	assert.Equal(t, []Kind{AccountsChanged, TxServiceReset}, first)
	assert.Equal(t, []Kind{AccountsChanged, TxServiceReset}, second)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Publish(Event{Kind: Locked})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Kind: Locked})

	assert.Equal(t, 1, count)
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(func(Event) {
		calls++
		bus.Subscribe(func(Event) {})
	})

	bus.Publish(Event{Kind: Unlocked})
	assert.Equal(t, 1, calls)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
		wantErr bool
	}{
		{
			name:    "status change",
			payload: `{"kind":"transaction_status_changed","coin":501,"txId":"tx-1"}`,
			want:    Event{Kind: TransactionStatusChanged, Coin: wallet.CoinSOL, TxID: "tx-1"},
		},
		{
			name:    "currency normalized",
			payload: `{"kind":"currency_changed","currency":" EUR "}`,
			want:    Event{Kind: CurrencyChanged, Currency: "eur"},
		},
		{
			name:    "accounts added",
			payload: `{"kind":"accounts_added","coin":60,"addresses":["0xabc"]}`,
			want:    Event{Kind: AccountsAdded, Coin: wallet.CoinETH, Addresses: []string{"0xabc"}},
		},
		{
			name:    "unknown kind",
			payload: `{"kind":"something_else"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{"kind":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewKafkaSourceValidation(t *testing.T) {
	_, err := NewKafkaSource(KafkaConfig{Topic: "wallet-events"}, NewBus(), nil)
	assert.Error(t, err)

	_, err = NewKafkaSource(KafkaConfig{Brokers: []string{"localhost:9092"}}, NewBus(), nil)
	assert.Error(t, err)
}

func TestNewKafkaSinkValidation(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Topic: "wallet-events"})
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: " "})
	assert.Error(t, err)

	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "wallet-events"})
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
}

func TestEncodeEvent(t *testing.T) {
	payload, err := EncodeEvent(Event{Kind: TxServiceReset})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"tx_service_reset"}`, string(payload))

	decoded, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: TxServiceReset}, decoded)

	_, err = EncodeEvent(Event{Kind: "exploded"})
	assert.Error(t, err)
}
