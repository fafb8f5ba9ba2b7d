package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/api"
	"github.com/matrixise/wallet-activity/internal/config"
	"github.com/matrixise/wallet-activity/internal/events"
	"github.com/matrixise/wallet-activity/internal/health"
	"github.com/matrixise/wallet-activity/internal/logger"
	"github.com/matrixise/wallet-activity/internal/metrics"
	"github.com/matrixise/wallet-activity/internal/scheduler"
	"github.com/matrixise/wallet-activity/internal/telemetry"
	"github.com/spf13/cobra"
)

var interval string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the activity daemon",
	Long: `Serve the activity feed over HTTP and keep it fresh. The feed refreshes on
wallet events from the in-process bus and Kafka, and periodically when an interval
is configured.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "periodic refresh - duration (5m, 1h) or cron (\"*/5 * * * *\") - overrides config")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := logger.Setup(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		log.Error("Configuration error", "error", err)
		return err
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		log = logger.Setup(cfg.LogLevel)
	}

	runInterval := interval
	if runInterval == "" {
		runInterval = cfg.Interval
	}
	if err := scheduler.ValidateScheduleInterval(runInterval); err != nil {
		return err
	}

	log.Info("Configuration loaded",
		"config_path", cfgFile,
		"networks", len(cfg.Networks),
		"accounts", len(cfg.Accounts),
		"currency", cfg.DefaultCurrency(),
		"interval", runInterval,
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint, cfg.Telemetry.Insecure)
	if err != nil {
		log.Warn("Tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Error("Tracer shutdown error", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, databaseURL, log)
	if err != nil {
		log.Error("Startup failed", "error", err)
		return err
	}
	defer a.close()

	observer := activity.NewObserver(a.store, a.registry, log)
	observer.Attach(a.bus)
	defer observer.Detach()

	if len(cfg.Kafka.Brokers) > 0 {
		source, err := events.NewKafkaSource(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, a.bus, log)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer source.Close()

		go func() {
			log.Info("Kafka consumer started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
			if err := source.Run(ctx); err != nil {
				log.Error("Kafka consumer stopped", "error", err)
			}
		}()
	}

	var expectedInterval time.Duration
	if runInterval == "" {
		a.store.Start(ctx)
	} else {
		a.store.Init(ctx)
		sched, err := scheduler.NewScheduler(scheduler.Config{
			Interval:       runInterval,
			Timezone:       cfg.GetTimezone(),
			RunImmediately: cfg.ShouldRunImmediately(),
			Logger:         log,
		}, a.store)
		if err != nil {
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("scheduler start failed: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Error("Scheduler shutdown error", "error", err)
			}
		}()
		expectedInterval = sched.ExpectedInterval()
		log.Info("Periodic refresh scheduled",
			"schedule", scheduler.DescribeSchedule(runInterval, cfg.GetTimezone()),
			"run_immediately", cfg.ShouldRunImmediately())
	}

	var rpc health.EndpointReporter
	if a.solana != nil {
		rpc = a.solana
	}
	checker := health.NewChecker(a.db, rpc, a.store, expectedInterval, log)

	server := api.NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), api.NewRouter(api.Config{
		Store:          a.store,
		Settings:       a.registry,
		Accounts:       a.registry,
		Health:         checker.Handler(),
		Metrics:        metrics.Handler(a.metrics),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
	}))

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown requested, stopping daemon")
	case err := <-serveErr:
		log.Error("HTTP server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}
