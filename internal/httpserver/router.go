package httpserver

import (
	"net/http"

	"lv-papertrade/internal/admin"
	"lv-papertrade/internal/auth"
	"lv-papertrade/internal/health"
	"lv-papertrade/internal/httputil"
	"lv-papertrade/internal/ledger"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/report"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler   *auth.Handler
	LedgerHandler *ledger.Handler
	QuoteHandler  *quote.Handler
	ReportHandler *report.Handler
	AdminHandler  *admin.Handler
	HealthHandler *health.Handler
	AuthService   *auth.Service
	InternalToken string
	WSHandler     http.Handler
}

// withUser bridges the auth middleware and the per-user handler signature.
func withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		next(w, r, userID)
	}
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Live)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})

		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Get("/symbols", d.QuoteHandler.Symbols)
		r.Get("/quotes/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			d.QuoteHandler.Quote(w, r, chi.URLParam(r, "symbol"))
		})

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", withUser(d.AuthHandler.Me))

			r.Post("/positions", withUser(d.LedgerHandler.Open))
			r.Get("/positions", withUser(d.LedgerHandler.List))
			r.Post("/positions/{id}/close", withUser(d.LedgerHandler.Close))
			r.Delete("/positions/{id}", withUser(d.LedgerHandler.Cancel))
			r.Get("/account/summary", withUser(d.LedgerHandler.Summary))

			r.Get("/stats", withUser(d.ReportHandler.Stats))
			r.Get("/portfolio", withUser(d.ReportHandler.Portfolio))

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", withUser(d.AdminHandler.RequireAdmin(d.AdminHandler.ListUsers)))
				r.Post("/users/{id}/balance", withUser(d.AdminHandler.RequireAdmin(d.AdminHandler.ResetBalance)))
				r.Delete("/users/{id}", withUser(d.AdminHandler.RequireAdmin(d.AdminHandler.DeleteUser)))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Get("/internal/ready", d.HealthHandler.Ready)
			r.Get("/internal/metrics", d.HealthHandler.Metrics)
		})
	})
	return r
}
