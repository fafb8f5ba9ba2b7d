// Package scheduler triggers periodic activity refreshes on clock-aligned boundaries.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Refresher starts a refresh generation
type Refresher interface {
	Refresh() uint64
}

// Config holds scheduler configuration
type Config struct {
	Interval       string         // "5m" or a cron expression ("*/5 * * * *")
	Timezone       *time.Location // for cron expressions, default UTC
	RunImmediately bool
	Logger         *slog.Logger
}

// Scheduler wraps gocron and refreshes its target on every tick
type Scheduler struct {
	gocron         gocron.Scheduler
	job            gocron.Job
	interval       string
	timezone       *time.Location
	runImmediately bool
	logger         *slog.Logger
}

// cronPattern matches 5 or 6 whitespace separated fields
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// NewScheduler creates a scheduler refreshing target on cfg.Interval
func NewScheduler(cfg Config, target Refresher) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cronExpr := cfg.Interval
	if !IsCronExpression(cfg.Interval) {
		expr, err := durationToCron(cfg.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		cronExpr = expr
	}

	inner, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{
		gocron:         inner,
		interval:       cfg.Interval,
		timezone:       cfg.Timezone,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger,
	}

	s.logger.Info("Refresh schedule", "schedule", DescribeSchedule(cfg.Interval, cfg.Timezone))
	job, err := inner.NewJob(
		gocron.CronJob(cronExpr, len(strings.Fields(cronExpr)) == 6),
		gocron.NewTask(func() {
			gen := target.Refresh()
			s.logger.Debug("Scheduled refresh started", "generation", gen)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job
	return s, nil
}

// Start begins the scheduler, refreshing once first when configured to
func (s *Scheduler) Start() error {
	s.gocron.Start()

	if s.runImmediately {
		if err := s.job.RunNow(); err != nil {
			s.logger.Error("Immediate refresh failed", "error", err)
		}
	}

	if next, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", next.Format(time.RFC3339), "timezone", s.timezone.String())
	} else {
		s.logger.Info("Scheduler started")
	}
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocron.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return next, nil
}

// LastRun returns the last run time
func (s *Scheduler) LastRun() (time.Time, error) {
	last, err := s.job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return last, nil
}

// ExpectedInterval is the interval between ticks. Cron schedules may be irregular and
// report a conservative 5 minutes.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if d, err := time.ParseDuration(s.interval); err == nil {
		return d
	}
	return 5 * time.Minute
}

// IsCronExpression reports whether s looks like a cron expression rather than a duration
func IsCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// durationToCron converts a duration into a clock-aligned cron expression:
// "30s" -> "*/30 * * * * *", "5m" -> "*/5 * * * *", "2h" -> "0 */2 * * *".
func durationToCron(raw string) (string, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return "", fmt.Errorf("invalid duration format: %w", err)
	}

	switch {
	case d < time.Minute:
		n := int(d / time.Second)
		if d%time.Second != 0 || !divides(n, 60) {
			return "", fmt.Errorf("second intervals must divide evenly into 60 (got %s)", raw)
		}
		return fmt.Sprintf("*/%d * * * * *", n), nil

	case d < time.Hour:
		n := int(d / time.Minute)
		if d%time.Minute != 0 || !divides(n, 60) {
			return "", fmt.Errorf("minute intervals must divide evenly into 60 (got %s)", raw)
		}
		return fmt.Sprintf("*/%d * * * *", n), nil

	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if !divides(n, 24) {
			return "", fmt.Errorf("hour intervals must divide evenly into 24 (got %s)", raw)
		}
		return fmt.Sprintf("0 */%d * * *", n), nil

	default:
		return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", raw)
	}
}

func divides(n, whole int) bool {
	return n > 0 && whole%n == 0
}

// ValidateScheduleInterval validates a schedule interval (duration or cron)
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return nil // one-shot mode
	}
	if IsCronExpression(interval) {
		if n := len(strings.Fields(interval)); n != 5 && n != 6 {
			return errors.New("cron expression must have 5 or 6 fields")
		}
		return nil
	}
	_, err := durationToCron(interval)
	return err
}

// DescribeSchedule renders a human-readable description of the schedule
func DescribeSchedule(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}

	if IsCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone.String())
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Sprintf("invalid: %s", interval)
	}
	cronExpr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("duration: %s (non-aligned)", interval)
	}
	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", d, cronExpr, timezone.String())
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *gocronLoggerAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *gocronLoggerAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *gocronLoggerAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
