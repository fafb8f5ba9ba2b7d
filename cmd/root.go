package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	envFile  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wallet-activity",
	Short: "Multi-chain wallet transaction activity aggregator",
	Long: `wallet-activity merges the transactions of every wallet account into a single
display-ready feed. It resolves the selected network of each chain, prices amounts
and fees in the configured fiat currency, and refreshes the feed whenever accounts,
transactions or settings change.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// loadEnvFile loads the dotenv file when present. Variables already set win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}
