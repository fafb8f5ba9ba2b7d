package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/events"
	"github.com/matrixise/wallet-activity/internal/logger"
	"github.com/matrixise/wallet-activity/internal/storage"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var importNotify bool

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import transaction records into PostgreSQL",
	Long: `Load a JSON array of transaction records and upsert them into wallet_transactions.
Records are matched by id; existing rows get their status, gas and message updated.
Coins are SLIP-44 numbers (60 eth, 461 fil, 501 sol) and amounts are integers in the
smallest unit. With --notify a tx_service_reset event is sent to the configured Kafka
topic so running daemons refresh.`,
	Args: cobra.ExactArgs(1),
	RunE: importTransactions,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importNotify, "notify", false, "publish a tx_service_reset event to Kafka after the import")
}

func importTransactions(cmd *cobra.Command, args []string) error {
	log := logger.Setup(logLevel)
	ctx := cmd.Context()

	records, err := readRecords(args[0])
	if err != nil {
		return err
	}

	dsn, err := config.DatabaseURL()
	if err != nil {
		return err
	}
	db, err := storage.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UpsertTransactions(ctx, records); err != nil {
		log.Error("Import failed", "error", err)
		return err
	}
	log.Info("Transactions imported",
		"count", len(records),
		"coins", lo.Uniq(lo.Map(records, func(r wallet.TransactionRecord, _ int) string { return r.Coin.String() })),
	)

	if !importNotify {
		return nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	sink, err := events.NewKafkaSink(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer sink.Close()

	if err := sink.Send(ctx, events.Event{Kind: events.TxServiceReset}); err != nil {
		return err
	}
	log.Info("Refresh notification sent", "topic", cfg.Kafka.Topic)
	return nil
}

func readRecords(path string) ([]wallet.TransactionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []wallet.TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var errs []error
	for i, r := range records {
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("record %d: id is required", i))
		}
		if !lo.Contains(wallet.SupportedCoins, r.Coin) {
			errs = append(errs, fmt.Errorf("record %d: unsupported coin %s", i, r.Coin))
		}
		if r.CreatedTime.IsZero() {
			errs = append(errs, fmt.Errorf("record %d: createdTime is required", i))
		}
	}
	if dup := lo.FindDuplicatesBy(records, func(r wallet.TransactionRecord) string { return r.ID }); len(dup) > 0 {
		errs = append(errs, fmt.Errorf("duplicate id %q", dup[0].ID))
	}
	return records, errors.Join(errs...)
}
