package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/matrixise/wallet-activity/internal/scheduler"
	"github.com/matrixise/wallet-activity/internal/wallet"
)

// Config represents the application configuration
type Config struct {
	LogLevel       string            `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort       int               `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	AllowedOrigins []string          `mapstructure:"allowed_origins" validate:"omitempty,dive,required"`
	Interval       string            `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone       string            `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately *bool             `mapstructure:"run_immediately"`
	Currency       string            `mapstructure:"currency" validate:"omitempty,currency"`
	SupportedCoins []string          `mapstructure:"supported_coins" validate:"omitempty,dive,coin"`
	PriceOracle    PriceOracleConfig `mapstructure:"price_oracle"`
	Solana         SolanaConfig      `mapstructure:"solana"`
	Kafka          KafkaConfig       `mapstructure:"kafka"`
	Telemetry      TelemetryConfig   `mapstructure:"telemetry"`
	Networks       []NetworkConfig   `mapstructure:"networks" validate:"required,min=1,dive"`
	Accounts       []AccountConfig   `mapstructure:"accounts" validate:"omitempty,dive"`
	Tokens         []TokenConfig     `mapstructure:"tokens" validate:"omitempty,dive"`
}

// PriceOracleConfig configures the CoinGecko client
type PriceOracleConfig struct {
	BaseURL           string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string `mapstructure:"api_key"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"omitempty,min=1,max=1000"`
	Timeout           string `mapstructure:"timeout" validate:"omitempty,duration"`
}

// SolanaConfig configures dynamic fee estimation for Solana transactions.
// Estimation is disabled when no RPC URL is set.
type SolanaConfig struct {
	RPCUrl  string   `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls []string `mapstructure:"rpc_urls" validate:"omitempty,dive,url"`
	Timeout string   `mapstructure:"timeout" validate:"omitempty,duration"`
}

// KafkaConfig configures the wallet event consumer. The consumer is disabled when
// no broker is set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" validate:"omitempty,dive,hostname_port"`
	Topic   string   `mapstructure:"topic" validate:"required_with=Brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// TelemetryConfig configures OTLP trace export. Tracing is disabled when no endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
}

// NetworkConfig declares one network of a coin
type NetworkConfig struct {
	Coin        string `mapstructure:"coin" validate:"required,coin"`
	ChainID     string `mapstructure:"chain_id" validate:"required"`
	Name        string `mapstructure:"name" validate:"required,max=100"`
	Symbol      string `mapstructure:"symbol" validate:"required,max=20"`
	Decimals    int32  `mapstructure:"decimals" validate:"min=0,max=36"`
	CoingeckoID string `mapstructure:"coingecko_id"`
	Selected    bool   `mapstructure:"selected"`
}

// AccountConfig declares one wallet account
type AccountConfig struct {
	Coin    string `mapstructure:"coin" validate:"required,coin"`
	Name    string `mapstructure:"name" validate:"required,max=100"`
	Address string `mapstructure:"address" validate:"required"`
}

// TokenConfig declares one known token
type TokenConfig struct {
	Coin            string `mapstructure:"coin" validate:"required,coin"`
	ChainID         string `mapstructure:"chain_id" validate:"required"`
	ContractAddress string `mapstructure:"contract_address" validate:"required"`
	Name            string `mapstructure:"name" validate:"max=100"`
	Symbol          string `mapstructure:"symbol" validate:"required,max=20"`
	Decimals        int32  `mapstructure:"decimals" validate:"min=0,max=36"`
	CoingeckoID     string `mapstructure:"coingecko_id"`
	Visible         bool   `mapstructure:"visible"`
	NFT             bool   `mapstructure:"nft"`
}

// Normalize folds the single Solana rpc_url into rpc_urls, lowercases the currency and
// checks that no coin has more than one selected network.
func (c *Config) Normalize() error {
	if c.Solana.RPCUrl != "" {
		if len(c.Solana.RPCUrls) == 0 {
			c.Solana.RPCUrls = []string{c.Solana.RPCUrl}
		}
		c.Solana.RPCUrl = ""
	}

	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))

	selected := make(map[string]string)
	for _, n := range c.Networks {
		if !n.Selected {
			continue
		}
		coin := strings.ToLower(n.Coin)
		if other, ok := selected[coin]; ok {
			return fmt.Errorf("coin %s has more than one selected network (%s, %s)", coin, other, n.ChainID)
		}
		selected[coin] = n.ChainID
	}
	return nil
}

// GetTimezone returns the timezone location, defaulting to UTC
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately reports whether the daemon refreshes on start (default true)
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// IsCronExpression reports whether Interval is a cron expression rather than a duration
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// Coins returns the configured coin types, or every supported coin when none is set.
// Entries are validated, so unknown names are skipped.
func (c *Config) Coins() []wallet.CoinType {
	if len(c.SupportedCoins) == 0 {
		return wallet.SupportedCoins
	}
	coins := make([]wallet.CoinType, 0, len(c.SupportedCoins))
	for _, name := range c.SupportedCoins {
		if coin, err := wallet.ParseCoinType(name); err == nil {
			coins = append(coins, coin)
		}
	}
	return coins
}

// DefaultCurrency returns the configured currency or "usd"
func (c *Config) DefaultCurrency() string {
	if c.Currency == "" {
		return "usd"
	}
	return c.Currency
}
