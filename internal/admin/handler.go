// Package admin exposes the operator endpoints: user listing, balance resets
// and user removal. Routes here sit behind both the bearer-token middleware
// and an is-admin check on the calling user.
package admin

import (
	"errors"
	"net/http"

	"lv-papertrade/internal/account"
	"lv-papertrade/internal/auth"
	"lv-papertrade/internal/httputil"
	"lv-papertrade/internal/ledger"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	users  *account.Store
	authz  *auth.Service
	ledger *ledger.Ledger
}

func NewHandler(users *account.Store, authz *auth.Service, l *ledger.Ledger) *Handler {
	return &Handler{users: users, authz: authz, ledger: l}
}

// RequireAdmin wraps a per-user handler and rejects non-admin callers.
func (h *Handler) RequireAdmin(next func(http.ResponseWriter, *http.Request, string)) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if !h.authz.IsAdmin(userID) {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: "admin access required"})
			return
		}
		next(w, r, userID)
	}
}

type userRow struct {
	account.User
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, _ string) {
	users := h.users.List()
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		summary, err := h.ledger.AccountSummary(u.ID)
		if err != nil {
			rows = append(rows, userRow{User: u})
			continue
		}
		rows = append(rows, userRow{User: u, Balance: summary.Balance})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": rows})
}

type resetBalanceRequest struct {
	Balance string `json:"balance"`
}

func (h *Handler) ResetBalance(w http.ResponseWriter, r *http.Request, _ string) {
	targetID := chi.URLParam(r, "id")
	var req resetBalanceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Balance)
	if err != nil || amount.IsNegative() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "balance must be a non-negative number"})
		return
	}
	if _, err := h.users.GetByID(targetID); err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "user not found"})
		return
	}
	if err := h.ledger.ResetBalance(r.Context(), targetID, amount); err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"user_id": targetID, "balance": amount.String()})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, callerID string) {
	targetID := chi.URLParam(r, "id")
	if targetID == callerID {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "cannot delete own account"})
		return
	}
	if err := h.users.Delete(targetID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, account.ErrNotFound) {
			status = http.StatusNotFound
		}
		httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	h.ledger.RemoveAccount(targetID)
	w.WriteHeader(http.StatusNoContent)
}
