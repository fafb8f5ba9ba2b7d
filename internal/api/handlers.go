package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/wallet-activity/internal/activity"
	"github.com/matrixise/wallet-activity/internal/registry"
	"github.com/matrixise/wallet-activity/internal/wallet"
)

type handler struct {
	store    ActivityStore
	settings Settings
	accounts Accounts
	logger   *slog.Logger
}

// ActivityResponse is the body of GET /activity
type ActivityResponse struct {
	Generation   uint64                        `json:"generation"`
	Currency     string                        `json:"currency"`
	Final        bool                          `json:"final"`
	PublishedAt  *time.Time                    `json:"publishedAt,omitempty"`
	Transactions []activity.TransactionSummary `json:"transactions"`
}

// CurrencyRequest is the body of PUT /currency
type CurrencyRequest struct {
	Currency string `json:"currency"`
}

// AccountRequest is the body of POST /accounts
type AccountRequest struct {
	Coin    string `json:"coin"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// RefreshResponse is the body of POST /refresh
type RefreshResponse struct {
	Generation uint64 `json:"generation"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *handler) listActivity(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	resp := ActivityResponse{
		Generation:   snap.Generation,
		Currency:     snap.Currency,
		Final:        snap.Final,
		Transactions: snap.Summaries,
	}
	if !snap.PublishedAt.IsZero() {
		resp.PublishedAt = &snap.PublishedAt
	}
	if resp.Transactions == nil {
		resp.Transactions = []activity.TransactionSummary{}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.State())
}

func (h *handler) transactionDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, err := h.store.LoadDetails(r.Context(), id)
	switch {
	case errors.Is(err, activity.ErrUnknownTransaction):
		h.respondError(w, http.StatusNotFound, "transaction not found")
		return
	case errors.Is(err, activity.ErrNotDisplayable):
		h.respondError(w, http.StatusNotFound, "transaction is not displayable")
		return
	case err != nil:
		h.logger.Error("Failed to load transaction details", "tx_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load transaction details")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusAccepted, RefreshResponse{Generation: h.store.Refresh()})
}

func (h *handler) setCurrency(w http.ResponseWriter, r *http.Request) {
	var req CurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.settings.SetDefaultCurrency(r.Context(), req.Currency); err != nil {
		if errors.Is(err, registry.ErrInvalidCurrency) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to set currency", "currency", req.Currency, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to set currency")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coin, err := wallet.ParseCoinType(req.Coin)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.accounts.AddAccount(r.Context(), wallet.AccountInfo{Coin: coin, Name: req.Name, Address: req.Address})
	switch {
	case errors.Is(err, registry.ErrDuplicateAccount):
		h.respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *handler) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *handler) respondError(w http.ResponseWriter, code int, message string) {
	h.respondJSON(w, code, ErrorResponse{Error: message})
}
