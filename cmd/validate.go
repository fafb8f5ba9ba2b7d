package cmd

import (
	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/logger"
	"github.com/matrixise/wallet-activity/internal/scheduler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	log := logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Error("Configuration validation failed", "error", err)
		return err
	}
	_, dbErr := config.DatabaseURL()

	attrs := []any{
		"networks", len(cfg.Networks),
		"accounts", len(cfg.Accounts),
		"tokens", len(cfg.Tokens),
		"coins", len(cfg.Coins()),
		"currency", cfg.DefaultCurrency(),
		"solana_rpc_endpoints", len(cfg.Solana.RPCUrls),
		"kafka_enabled", len(cfg.Kafka.Brokers) > 0,
		"tracing_enabled", cfg.Telemetry.Endpoint != "",
		"database_url_set", dbErr == nil,
	}
	if cfg.Interval != "" {
		attrs = append(attrs, "schedule", scheduler.DescribeSchedule(cfg.Interval, cfg.GetTimezone()))
	}
	log.Info("✓ Configuration valid", attrs...)
	return nil
}
