package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lv-papertrade/internal/account"
	"lv-papertrade/internal/admin"
	"lv-papertrade/internal/auth"
	"lv-papertrade/internal/balance"
	"lv-papertrade/internal/health"
	"lv-papertrade/internal/instrument"
	"lv-papertrade/internal/ledger"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/report"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const internalToken = "internal-test-token"

type testEnv struct {
	router  http.Handler
	cache   *quote.Cache
	authSvc *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := instrument.NewDefaultRegistry()
	cache := quote.NewCache()
	bus := quote.NewBus()
	balances := balance.NewStore()
	ledgerSvc := ledger.New(registry, cache, balances, nil)
	users := account.NewStore()
	authSvc := auth.NewService(users, ledgerSvc, "test", []byte("secret"), time.Hour, decimal.NewFromInt(10000))
	reportSvc := report.NewService(ledgerSvc, cache)

	router := NewRouter(RouterDeps{
		AuthHandler:   auth.NewHandler(authSvc),
		LedgerHandler: ledger.NewHandler(ledgerSvc),
		QuoteHandler:  quote.NewHandler(registry, cache, nil),
		ReportHandler: report.NewHandler(reportSvc),
		AdminHandler:  admin.NewHandler(users, authSvc, ledgerSvc),
		HealthHandler: health.NewHandler(nil),
		AuthService:   authSvc,
		InternalToken: internalToken,
		WSHandler:     NewWSHandler(bus, authSvc, ledgerSvc, "*"),
	})
	return &testEnv{router: router, cache: cache, authSvc: authSvc}
}

func (e *testEnv) setQuote(symbol, price string) {
	e.cache.Set(quote.Quote{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Timestamp: time.Now().UTC(),
	})
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func assertAmount(t *testing.T, want, got string) {
	t.Helper()
	w := decimal.RequireFromString(want)
	g, err := decimal.NewFromString(got)
	require.NoError(t, err)
	assert.True(t, w.Equal(g), "want %s, got %s", want, got)
}

func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]string
	decodeBody(t, rec, &out)
	require.NotEmpty(t, out["access_token"])
	return out["access_token"]
}

func TestTradingFlow(t *testing.T) {
	env := newTestEnv(t)
	env.setQuote("AAPL", "180.50")
	token := env.registerUser(t, "flow@example.com")

	rec := env.do(t, http.MethodPost, "/v1/positions", token, map[string]string{
		"symbol": "aapl",
		"side":   "buy",
		"kind":   "market",
		"qty":    "10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pos struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &pos)
	assert.Equal(t, "open", pos.Status)

	rec = env.do(t, http.MethodGet, "/v1/account/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, rec, &summary)
	assertAmount(t, "8195.00", summary.Balance)

	rec = env.do(t, http.MethodPost, "/v1/positions/"+pos.ID+"/close", token, map[string]string{
		"price": "182.63",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed struct {
		Status string `json:"status"`
		PnL    string `json:"pnl"`
	}
	decodeBody(t, rec, &closed)
	assert.Equal(t, "closed", closed.Status)
	assertAmount(t, "21.30", closed.PnL)

	rec = env.do(t, http.MethodGet, "/v1/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalTrades int    `json:"total_trades"`
		WinRate     string `json:"win_rate"`
	}
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalTrades)
	assertAmount(t, "100", stats.WinRate)
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	env.setQuote("AAPL", "180.50")
	token := env.registerUser(t, "errors@example.com")

	// Unknown symbol -> 400
	rec := env.do(t, http.MethodPost, "/v1/positions", token, map[string]string{
		"symbol": "DOGE", "side": "buy", "kind": "market", "qty": "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown position -> 404
	rec = env.do(t, http.MethodPost, "/v1/positions/nope/close", token, map[string]string{"price": "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Cancelling an open position -> 409
	rec = env.do(t, http.MethodPost, "/v1/positions", token, map[string]string{
		"symbol": "AAPL", "side": "buy", "kind": "market", "qty": "1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var pos struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &pos)
	rec = env.do(t, http.MethodDelete, "/v1/positions/"+pos.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/positions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/positions", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuoteEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.setQuote("AAPL", "182.63")

	rec := env.do(t, http.MethodGet, "/v1/quotes/AAPL", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	decodeBody(t, rec, &q)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "182.63", q.Price)

	rec = env.do(t, http.MethodGet, "/v1/quotes/DOGE", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/quotes/MSFT", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.authSvc.RegisterAdmin(context.Background(), "root@example.com", "super-secret"))
	adminToken, err := env.authSvc.Login(context.Background(), "root@example.com", "super-secret")
	require.NoError(t, err)
	userToken := env.registerUser(t, "plain@example.com")

	// Non-admin is rejected.
	rec := env.do(t, http.MethodGet, "/v1/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"users"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Users, 2)

	var plainID string
	for _, u := range list.Users {
		if u.Email == "plain@example.com" {
			plainID = u.ID
		}
	}
	require.NotEmpty(t, plainID)

	rec = env.do(t, http.MethodPost, "/v1/admin/users/"+plainID+"/balance", adminToken, map[string]string{
		"balance": "250.50",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/account/summary", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, rec, &summary)
	assertAmount(t, "250.50", summary.Balance)

	rec = env.do(t, http.MethodDelete, "/v1/admin/users/"+plainID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/account/summary", userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalEndpointsNeedToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/ready", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/internal/ready", nil)
	req.Header.Set("X-Internal-Token", internalToken)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
