package storage

import (
	"math/big"
	"strings"
	"time"

	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/shopspring/decimal"
)

// transactionRow is one wallet_transactions row
type transactionRow struct {
	ID              string
	Coin            int32
	ChainID         string
	Status          string
	Type            string
	From            string
	To              string
	ContractAddress string
	Value           decimal.NullDecimal
	GasLimit        int64
	GasPrice        decimal.NullDecimal
	Message         string
	CreatedAt       time.Time
}

// normalizeAddress lowercases EVM and Filecoin addresses so lookups match regardless of
// checksum casing. Solana addresses are kept as is.
func normalizeAddress(coin wallet.CoinType, address string) string {
	address = strings.TrimSpace(address)
	if coin == wallet.CoinSOL {
		return address
	}
	return strings.ToLower(address)
}

func toNullDecimal(v *big.Int) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(v, 0))
}

func fromNullDecimal(d decimal.NullDecimal) *big.Int {
	if !d.Valid {
		return nil
	}
	return d.Decimal.BigInt()
}

func rowFromRecord(r wallet.TransactionRecord) transactionRow {
	return transactionRow{
		ID:              r.ID,
		Coin:            int32(r.Coin),
		ChainID:         r.ChainID,
		Status:          string(r.Status),
		Type:            string(r.Type),
		From:            normalizeAddress(r.Coin, r.From),
		To:              normalizeAddress(r.Coin, r.To),
		ContractAddress: normalizeAddress(r.Coin, r.ContractAddress),
		Value:           toNullDecimal(r.Value),
		GasLimit:        int64(r.GasLimit),
		GasPrice:        toNullDecimal(r.GasPrice),
		Message:         r.Message,
		CreatedAt:       r.CreatedTime.UTC(),
	}
}

func (row transactionRow) record() wallet.TransactionRecord {
	return wallet.TransactionRecord{
		ID:              row.ID,
		Coin:            wallet.CoinType(row.Coin),
		ChainID:         row.ChainID,
		Status:          wallet.TxStatus(row.Status),
		Type:            wallet.TxType(row.Type),
		From:            row.From,
		To:              row.To,
		ContractAddress: row.ContractAddress,
		Value:           fromNullDecimal(row.Value),
		GasLimit:        uint64(row.GasLimit),
		GasPrice:        fromNullDecimal(row.GasPrice),
		Message:         row.Message,
		CreatedTime:     row.CreatedAt,
	}
}
