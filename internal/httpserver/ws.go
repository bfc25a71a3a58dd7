package httpserver

import (
	"net/http"
	"strings"
	"time"

	"lv-papertrade/internal/auth"
	"lv-papertrade/internal/ledger"
	"lv-papertrade/internal/quote"

	"github.com/gorilla/websocket"
)

// WSHandler streams quotes to an authenticated client and, between ticks,
// a throttled snapshot of the caller's account.
type WSHandler struct {
	bus      *quote.Bus
	authSvc  *auth.Service
	ledger   *ledger.Ledger
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *quote.Bus, authSvc *auth.Service, l *ledger.Ledger, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		ledger:  l,
		origin:  origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WS handshakes, so the token travels as a
	// query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lastSummaryAt := time.Time{}
	for {
		select {
		case q, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsEvent{Type: "quote", Data: q}); err != nil {
				return
			}
			if !lastSummaryAt.IsZero() && time.Since(lastSummaryAt) < 200*time.Millisecond {
				continue
			}
			summary, serr := h.ledger.AccountSummary(userID)
			if serr != nil {
				continue
			}
			if err := conn.WriteJSON(wsEvent{Type: "account_summary", Data: summary}); err != nil {
				return
			}
			lastSummaryAt = time.Now()
		case <-done:
			return
		}
	}
}
