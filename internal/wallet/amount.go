package wallet

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal scales a raw amount in the smallest denomination by 10^-decimals.
// A nil amount is treated as zero.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// HumanAmount converts a raw amount into a trimmed decimal string ("1.5", "0")
func HumanAmount(raw *big.Int, decimals int32) string {
	return ToDecimal(raw, decimals).String()
}

// StaticFee returns gasLimit * gasPrice, or nil when the record carries no gas price
func StaticFee(tx TransactionRecord) *big.Int {
	if tx.GasPrice == nil || tx.GasLimit == 0 {
		return nil
	}
	limit := new(big.Int).SetUint64(tx.GasLimit)
	return limit.Mul(limit, tx.GasPrice)
}
