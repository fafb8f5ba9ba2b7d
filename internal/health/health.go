package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/blockchain"
	"github.com/samber/lo"
)

// Pinger is a dependency that can be pinged, such as the database
type Pinger interface {
	Ping(ctx context.Context) error
}

// EndpointReporter reports RPC endpoint health
type EndpointReporter interface {
	Endpoints() []blockchain.EndpointHealth
}

// RefreshReporter reports the refresh coordinator state
type RefreshReporter interface {
	State() activity.Status
}

// Checker performs health checks on application dependencies. Nil dependencies are
// not checked.
type Checker struct {
	db       Pinger
	rpc      EndpointReporter
	refresh  RefreshReporter
	interval time.Duration
	started  time.Time
	logger   *slog.Logger
}

// NewChecker creates a new health checker. interval is the expected refresh period;
// zero disables the staleness check.
func NewChecker(db Pinger, rpc EndpointReporter, refresh RefreshReporter, interval time.Duration, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		db:       db,
		rpc:      rpc,
		refresh:  refresh,
		interval: interval,
		started:  time.Now(),
		logger:   logger,
	}
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Check performs all health checks and returns the aggregated status. A failing
// database is an error; RPC and refresh problems only degrade the service since the
// coordinator keeps publishing partial data.
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overall := StatusOK

	if c.db != nil {
		checks["database"] = c.checkDatabase(ctx)
	}
	if c.rpc != nil {
		checks["rpc_endpoints"] = c.checkRPC()
	}
	if c.refresh != nil {
		checks["refresh"] = c.checkRefresh()
	}

	for name, check := range checks {
		switch {
		case check.Status == StatusError && name == "database":
			overall = StatusError
		case check.Status != StatusOK && overall == StatusOK:
			overall = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(c.started).Round(time.Second).String(),
	}
}

func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		c.logger.Error("Health check: database ping failed", "error", err)
		return CheckDetail{Status: StatusError, Message: "database unreachable: " + err.Error()}
	}
	return CheckDetail{Status: StatusOK, Message: "database connection healthy"}
}

func (c *Checker) checkRPC() CheckDetail {
	endpoints := c.rpc.Endpoints()
	healthy := lo.CountBy(endpoints, func(e blockchain.EndpointHealth) bool { return e.Healthy })

	switch {
	case healthy == 0:
		c.logger.Error("Health check: no healthy RPC endpoints")
		return CheckDetail{Status: StatusError, Message: "no healthy RPC endpoints available"}
	case healthy == len(endpoints):
		return CheckDetail{Status: StatusOK, Message: "all RPC endpoints healthy"}
	default:
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthy, len(endpoints)),
		}
	}
}

func (c *Checker) checkRefresh() CheckDetail {
	st := c.refresh.State()

	if st.LastPublished.IsZero() {
		return CheckDetail{Status: StatusOK, Message: fmt.Sprintf("no activity published yet (%s)", st.State)}
	}

	since := time.Since(st.LastPublished)
	// allow a 2x interval grace period
	if c.interval > 0 && since > 2*c.interval {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no activity published in %s (expected every %s)", since.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status: StatusOK,
		Message: fmt.Sprintf("generation %d published %s ago with %d transactions",
			st.Generation, since.Round(time.Second), st.Summaries),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			c.logger.Error("Failed to encode health response", "error", err)
		}
	}
}
