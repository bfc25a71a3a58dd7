package quote

import (
	"net/http"
	"sort"
	"strings"

	"lv-papertrade/internal/httputil"
	"lv-papertrade/internal/instrument"

	"github.com/shopspring/decimal"
)

type Handler struct {
	registry *instrument.Registry
	feed     Feed
	pub      *Publisher
}

func NewHandler(registry *instrument.Registry, feed Feed, pub *Publisher) *Handler {
	return &Handler{registry: registry, feed: feed, pub: pub}
}

type symbolQuote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	Timestamp     int64  `json:"timestamp"`
}

func (h *Handler) quoteFor(symbol string) (symbolQuote, error) {
	q, err := h.feed.Latest(symbol)
	if err != nil {
		return symbolQuote{}, err
	}
	out := symbolQuote{
		Symbol:        q.Symbol,
		Price:         q.Price.String(),
		Change:        "0",
		ChangePercent: "0",
		Timestamp:     q.Timestamp.UnixMilli(),
	}
	if h.pub != nil {
		if open, ok := h.pub.SessionOpen(q.Symbol); ok && open.IsPositive() {
			change := q.Price.Sub(open)
			out.Change = change.String()
			out.ChangePercent = change.Div(open).Mul(decimal.NewFromInt(100)).Round(2).String()
		}
	}
	return out, nil
}

func (h *Handler) Symbols(w http.ResponseWriter, r *http.Request) {
	instruments := h.registry.List()
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].Symbol < instruments[j].Symbol })
	out := make([]symbolQuote, 0, len(instruments))
	for _, inst := range instruments {
		sq, err := h.quoteFor(inst.Symbol)
		if err != nil {
			continue
		}
		out = append(out, sq)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, err := h.registry.Lookup(symbol); err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "symbol not found"})
		return
	}
	sq, err := h.quoteFor(symbol)
	if err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "no quote yet"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sq)
}
