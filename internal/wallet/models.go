package wallet

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// CoinType identifies a blockchain family (SLIP-44 coin number)
type CoinType int

const (
	CoinBTC CoinType = 0
	CoinETH CoinType = 60
	CoinFIL CoinType = 461
	CoinSOL CoinType = 501
)

// SupportedCoins lists the coin types the activity feed aggregates
var SupportedCoins = []CoinType{CoinETH, CoinSOL, CoinFIL}

var coinNames = map[CoinType]string{
	CoinBTC: "btc",
	CoinETH: "eth",
	CoinFIL: "fil",
	CoinSOL: "sol",
}

func (c CoinType) String() string {
	if name, ok := coinNames[c]; ok {
		return name
	}
	return fmt.Sprintf("coin(%d)", int(c))
}

// ParseCoinType converts a short name ("eth", "sol", ...) into a CoinType
func ParseCoinType(s string) (CoinType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for coin, n := range coinNames {
		if n == name {
			return coin, nil
		}
	}
	return 0, fmt.Errorf("unknown coin type %q", s)
}

// TxStatus is the lifecycle status reported by the transaction service
type TxStatus string

const (
	StatusUnapproved TxStatus = "unapproved"
	StatusApproved   TxStatus = "approved"
	StatusRejected   TxStatus = "rejected"
	StatusSubmitted  TxStatus = "submitted"
	StatusConfirmed  TxStatus = "confirmed"
	StatusError      TxStatus = "error"
	StatusDropped    TxStatus = "dropped"
	StatusSigned     TxStatus = "signed"
)

// TxType classifies what a transaction does
type TxType string

const (
	TxNativeTransfer TxType = "native_transfer"
	TxTokenTransfer  TxType = "token_transfer"
	TxTokenApprove   TxType = "token_approve"
	TxNFTTransfer    TxType = "nft_transfer"
	TxSwap           TxType = "swap"
	TxOther          TxType = "other"
)

// TransactionRecord mirrors a transaction owned by the external transaction service.
// Records are never mutated after they are fetched.
type TransactionRecord struct {
	ID              string    `json:"id"`
	Coin            CoinType  `json:"coin"`
	ChainID         string    `json:"chainId"`
	Status          TxStatus  `json:"status"`
	Type            TxType    `json:"type"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	Value           *big.Int  `json:"value,omitempty"`
	GasLimit        uint64    `json:"gasLimit,omitempty"`
	GasPrice        *big.Int  `json:"gasPrice,omitempty"`
	Message         string    `json:"message,omitempty"` // serialized message for dynamic fee estimation
	CreatedTime     time.Time `json:"createdTime"`
}

// NetworkInfo identifies one network of a coin type
type NetworkInfo struct {
	Coin        CoinType `json:"coin"`
	ChainID     string   `json:"chainId"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Decimals    int32    `json:"decimals"`
	CoingeckoID string   `json:"coingeckoId,omitempty"`
}

// NativeToken returns the descriptor for the network's native asset
func (n NetworkInfo) NativeToken() Token {
	return Token{
		Coin:        n.Coin,
		ChainID:     n.ChainID,
		Name:        n.Name,
		Symbol:      n.Symbol,
		Decimals:    n.Decimals,
		CoingeckoID: n.CoingeckoID,
		Visible:     true,
	}
}

// AccountInfo is a wallet account identity
type AccountInfo struct {
	Coin    CoinType `json:"coin"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
}

// Keyring groups the accounts of a coin type
type Keyring struct {
	Coin     CoinType
	Accounts []AccountInfo
}

// Token describes a fungible or non-fungible asset
type Token struct {
	Coin            CoinType `json:"coin"`
	ChainID         string   `json:"chainId"`
	ContractAddress string   `json:"contractAddress,omitempty"`
	Name            string   `json:"name"`
	Symbol          string   `json:"symbol"`
	Decimals        int32    `json:"decimals"`
	CoingeckoID     string   `json:"coingeckoId,omitempty"`
	Visible         bool     `json:"visible"`
	IsNFT           bool     `json:"isNft,omitempty"`
}

// IsNative reports whether the token is the network's native asset
func (t Token) IsNative() bool {
	return t.ContractAddress == ""
}

// AssetRatioID is the identifier used to query the token's fiat price
func (t Token) AssetRatioID() string {
	if t.CoingeckoID != "" {
		return t.CoingeckoID
	}
	return strings.ToLower(t.Symbol)
}

// SameAddress compares two addresses of the given coin. EVM and Filecoin addresses
// compare case-insensitively; Solana base58 addresses are case-sensitive.
func SameAddress(coin CoinType, a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if coin == CoinSOL {
		return a == b
	}
	return strings.EqualFold(a, b)
}
