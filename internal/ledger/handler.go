package ledger

import (
	"errors"
	"net/http"
	"strings"

	"lv-papertrade/internal/httputil"
	"lv-papertrade/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(l *Ledger) *Handler {
	return &Handler{ledger: l}
}

type openRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Kind       string `json:"kind"`
	Qty        string `json:"qty"`
	LimitPrice string `json:"limit_price"`
	StopPrice  string `json:"stop_price"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, userID string) {
	var req openRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid qty"})
		return
	}
	kind := types.OrderKind(req.Kind)
	if req.Kind == "" {
		kind = types.OrderKindMarket
	}
	open := OpenRequest{
		AccountID: userID,
		Symbol:    symbol,
		Side:      types.Side(req.Side),
		Kind:      kind,
		Qty:       qty,
	}
	if open.LimitPrice, err = parsePrice(req.LimitPrice, "limit_price"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if open.StopPrice, err = parsePrice(req.StopPrice, "stop_price"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if open.StopLoss, err = parsePrice(req.StopLoss, "stop_loss"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if open.TakeProfit, err = parsePrice(req.TakeProfit, "take_profit"); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}

	pos, err := h.ledger.OpenPosition(r.Context(), open)
	if err != nil {
		httputil.WriteJSON(w, statusForError(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pos)
}

type closeRequest struct {
	Price string `json:"price"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID string) {
	positionID := chi.URLParam(r, "id")
	var req closeRequest
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	price, err := parsePrice(req.Price, "price")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	pos, err := h.ledger.ClosePosition(r.Context(), userID, positionID, price)
	if err != nil {
		httputil.WriteJSON(w, statusForError(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pos)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, userID string) {
	positionID := chi.URLParam(r, "id")
	if err := h.ledger.CancelPosition(r.Context(), userID, positionID); err != nil {
		httputil.WriteJSON(w, statusForError(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": string(types.PositionStatusCancelled)})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	var status *types.PositionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := types.PositionStatus(s)
		if !st.Valid() {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid status filter"})
			return
		}
		status = &st
	}
	positions, err := h.ledger.ListPositions(userID, status)
	if err != nil {
		httputil.WriteJSON(w, statusForError(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request, userID string) {
	s, err := h.ledger.AccountSummary(userID)
	if err != nil {
		httputil.WriteJSON(w, statusForError(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New("invalid " + field)
	}
	return &p, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrPositionNotFound), errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
