package storage

import (
	"math/big"
	"testing"
	"time"

	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name    string
		coin    wallet.CoinType
		address string
		want    string
	}{
		{"evm lowercased", wallet.CoinETH, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		{"evm trimmed", wallet.CoinETH, "  0xABC  ", "0xabc"},
		{"filecoin lowercased", wallet.CoinFIL, "F1ABC", "f1abc"},
		{"solana kept", wallet.CoinSOL, "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"},
		{"empty", wallet.CoinETH, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddress(tt.coin, tt.address))
		})
	}
}

func TestRowFromRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	value, ok := new(big.Int).SetString("999999999999999999999999999", 10)
	require.True(t, ok)

	row := rowFromRecord(wallet.TransactionRecord{
		ID:          "tx-1",
		Coin:        wallet.CoinETH,
		ChainID:     "0x1",
		Status:      wallet.StatusConfirmed,
		Type:        wallet.TxNativeTransfer,
		From:        "0xAAAA",
		To:          "0xBBBB",
		Value:       value,
		GasLimit:    21000,
		CreatedTime: created,
	})

	assert.Equal(t, "tx-1", row.ID)
	assert.Equal(t, int32(60), row.Coin)
	assert.Equal(t, "0xaaaa", row.From)
	assert.Equal(t, "0xbbbb", row.To)
	assert.Equal(t, "", row.ContractAddress)
	require.True(t, row.Value.Valid)
	assert.Equal(t, "999999999999999999999999999", row.Value.Decimal.String())
	assert.False(t, row.GasPrice.Valid, "nil gas price stays NULL")
	assert.Equal(t, int64(21000), row.GasLimit)
	assert.Equal(t, time.UTC, row.CreatedAt.Location())
	assert.True(t, row.CreatedAt.Equal(created))
}

func TestRowRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	row := transactionRow{
		ID:        "sol-1",
		Coin:      int32(wallet.CoinSOL),
		ChainID:   "0x65",
		Status:    string(wallet.StatusSubmitted),
		Type:      string(wallet.TxNativeTransfer),
		From:      "Sender111",
		To:        "Receiver222",
		Value:     decimal.NewNullDecimal(decimal.NewFromInt(1500000000)),
		GasLimit:  0,
		Message:   "AQABAg==",
		CreatedAt: created,
	}

	record := row.record()
	assert.Equal(t, wallet.CoinSOL, record.Coin)
	assert.Equal(t, wallet.StatusSubmitted, record.Status)
	assert.Equal(t, "Sender111", record.From)
	assert.Equal(t, big.NewInt(1500000000), record.Value)
	assert.Nil(t, record.GasPrice)
	assert.Equal(t, "AQABAg==", record.Message)
	assert.Equal(t, created, record.CreatedTime)
}

func TestRowRoundTripKeepsAmounts(t *testing.T) {
	in := wallet.TransactionRecord{
		ID:       "tx-2",
		Coin:     wallet.CoinETH,
		Value:    big.NewInt(0),
		GasPrice: big.NewInt(30_000_000_000),
	}

	out := rowFromRecord(in).record()
	assert.Equal(t, 0, out.Value.Sign())
	assert.Equal(t, in.GasPrice, out.GasPrice)
}

func TestMigrationFiles(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	assert.Contains(t, files, "00001_create_wallet_transactions.sql")
}
