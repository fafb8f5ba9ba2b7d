package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/logger"
	"github.com/matrixise/wallet-activity/internal/render"
	"github.com/spf13/cobra"
)

var (
	activityJSON     bool
	activityPlain    bool
	activityCurrency string
	activityTimeout  time.Duration
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Print the current transaction activity",
	Long:  `Run a single refresh and print the resulting activity feed as a table or JSON.`,
	RunE:  showActivity,
}

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().BoolVar(&activityJSON, "json", false, "print JSON instead of a table")
	activityCmd.Flags().BoolVar(&activityPlain, "no-color", false, "disable colors")
	activityCmd.Flags().StringVar(&activityCurrency, "currency", "", "fiat currency override (e.g. eur)")
	activityCmd.Flags().DurationVar(&activityTimeout, "timeout", time.Minute, "maximum time to wait for the refresh")
}

func showActivity(cmd *cobra.Command, args []string) error {
	log := logger.Setup(logLevel)

	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		log.Error("Configuration error", "error", err)
		return err
	}
	if activityCurrency != "" {
		cfg.Currency = strings.ToLower(strings.TrimSpace(activityCurrency))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), activityTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, databaseURL, log)
	if err != nil {
		return err
	}
	defer a.close()

	a.store.Start(ctx)
	a.store.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("refresh did not finish: %w", ctx.Err())
	}

	snap := a.store.Snapshot()
	out := cmd.OutOrStdout()
	if activityJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return render.Activity(out, snap, render.Options{Plain: activityPlain, Location: cfg.GetTimezone()})
}
