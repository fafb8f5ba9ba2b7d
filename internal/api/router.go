// Package api serves the activity feed over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/wallet"
)

// ActivityStore is the part of the refresh coordinator the API reads and triggers
type ActivityStore interface {
	Snapshot() activity.Snapshot
	State() activity.Status
	LoadDetails(ctx context.Context, id string) (activity.TransactionSummary, error)
	Refresh() uint64
}

// Settings changes the process-wide currency
type Settings interface {
	SetDefaultCurrency(ctx context.Context, code string) error
}

// Accounts registers wallet accounts
type Accounts interface {
	AddAccount(ctx context.Context, account wallet.AccountInfo) error
}

// Config holds router dependencies. Nil Health or Metrics handlers leave their routes
// unmounted; CORS is only enabled when AllowedOrigins is set.
type Config struct {
	Store          ActivityStore
	Settings       Settings
	Accounts       Accounts
	Health         http.Handler
	Metrics        http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates the HTTP router
func NewRouter(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &handler{store: cfg.Store, settings: cfg.Settings, accounts: cfg.Accounts, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(allowOrigins(cfg.AllowedOrigins))
	}
	r.Use(chimiddleware.Timeout(30 * time.Second))

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/activity", func(r chi.Router) {
		r.Get("/", h.listActivity)
		r.Get("/status", h.status)
		r.Get("/{id}", h.transactionDetails)
	})
	r.Post("/refresh", h.refresh)
	if cfg.Settings != nil {
		r.Put("/currency", h.setCurrency)
	}
	if cfg.Accounts != nil {
		r.Post("/accounts", h.addAccount)
	}

	return r
}

// NewServer wraps the router in an http.Server listening on addr
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
