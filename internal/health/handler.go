package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"lv-papertrade/internal/httputil"
)

// Pinger is satisfied by the Postgres journal. A nil Pinger means the
// service runs memory-only and readiness has nothing external to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	started time.Time
	db      Pinger
}

func NewHandler(db Pinger) *Handler {
	return &Handler{started: time.Now().UTC(), db: db}
}

func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "journal": err.Error()})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc":     m.HeapAlloc,
		"num_gc":         m.NumGC,
	})
}
