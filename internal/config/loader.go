package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "WALLET_ACTIVITY"

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "") // run once
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("currency", "usd")
	v.SetDefault("price_oracle.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_oracle.requests_per_minute", 30)
	v.SetDefault("price_oracle.timeout", "10s")
	v.SetDefault("solana.timeout", "10s")
	v.SetDefault("kafka.group_id", "wallet-activity")
	v.SetDefault("telemetry.service_name", "wallet-activity")

	// 2. Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment: WALLET_ACTIVITY_SOLANA_RPC_URLS -> solana.rpc_urls
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"log_level", "http_port", "allowed_origins", "interval", "timezone", "run_immediately", "currency",
		"supported_coins", "price_oracle.base_url", "price_oracle.api_key",
		"price_oracle.requests_per_minute", "price_oracle.timeout",
		"solana.rpc_url", "solana.rpc_urls", "solana.timeout",
		"kafka.brokers", "kafka.topic", "kafka.group_id",
		"telemetry.endpoint", "telemetry.service_name", "telemetry.insecure",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated lists from env vars
	if list := splitList(v.GetString("allowed_origins")); list != nil {
		cfg.AllowedOrigins = list
	}
	if list := splitList(v.GetString("supported_coins")); list != nil {
		cfg.SupportedCoins = list
	}
	if list := splitList(v.GetString("solana.rpc_urls")); list != nil {
		cfg.Solana.RPCUrls = list
	}
	if list := splitList(v.GetString("kafka.brokers")); list != nil {
		cfg.Kafka.Brokers = list
	}

	// 6. Normalize
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate
	if err := NewValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// splitList splits a comma-separated env value. It returns nil for values without a
// comma, which viper already decodes as a one-element list or a file slice.
func splitList(raw string) []string {
	if !strings.Contains(raw, ",") {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoadWithDefaults loads config with DATABASE_URL from environment
func LoadWithDefaults(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	databaseURL, err := DatabaseURL()
	if err != nil {
		return nil, "", err
	}
	return cfg, databaseURL, nil
}

// DatabaseURL reads the required DATABASE_URL environment variable
func DatabaseURL() (string, error) {
	v := viper.New()
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return "", err
	}
	databaseURL := v.GetString("database_url")
	if databaseURL == "" {
		return "", errors.New("DATABASE_URL is required")
	}
	return databaseURL, nil
}
