package activity

import (
	"time"

	"github.com/matrixise/wallet-activity/internal/wallet"
)

// TransactionSummary is the display-ready projection of one transaction.
// Optional fields are empty when the underlying data is unknown.
type TransactionSummary struct {
	TxID        string                   `json:"txId"`
	Coin        string                   `json:"coin"`
	Type        wallet.TxType            `json:"type"`
	Status      wallet.TxStatus          `json:"status"`
	CreatedTime time.Time                `json:"createdTime"`
	NetworkName string                   `json:"networkName"`
	FromAddress string                   `json:"fromAddress"`
	FromName    string                   `json:"fromName,omitempty"`
	ToAddress   string                   `json:"toAddress"`
	ToName      string                   `json:"toName,omitempty"`
	Symbol      string                   `json:"symbol,omitempty"`
	Amount      string                   `json:"amount,omitempty"`
	FiatValue   string                   `json:"fiatValue,omitempty"`
	Fee         string                   `json:"fee,omitempty"`
	FeeSymbol   string                   `json:"feeSymbol,omitempty"`
	FeeFiat     string                   `json:"feeFiat,omitempty"`
	Record      wallet.TransactionRecord `json:"-"`
}
