package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lv-papertrade/internal/account"
	"lv-papertrade/internal/admin"
	"lv-papertrade/internal/auth"
	"lv-papertrade/internal/balance"
	"lv-papertrade/internal/config"
	"lv-papertrade/internal/health"
	"lv-papertrade/internal/httpserver"
	"lv-papertrade/internal/instrument"
	"lv-papertrade/internal/journal"
	"lv-papertrade/internal/ledger"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/report"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	startingBalance, err := decimal.NewFromString(cfg.StartingBalance)
	if err != nil || startingBalance.IsNegative() {
		log.Fatal("STARTING_BALANCE must be a non-negative number")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jour journal.Journal = journal.NewNoop()
	var pinger health.Pinger
	if cfg.DBDSN != "" {
		pg, err := journal.NewPostgres(ctx, cfg.DBDSN)
		if err != nil {
			log.WithError(err).Fatal("journal")
		}
		defer pg.Close()
		jour = pg
		pinger = pg
		log.Info("journal: postgres")
	} else {
		log.Info("journal: disabled, state is memory-only")
	}

	registry := instrument.NewDefaultRegistry()
	precision := make(map[string]int32)
	for _, inst := range registry.List() {
		precision[inst.Symbol] = inst.PricePrecision
	}

	cache := quote.NewCache()
	bus := quote.NewBus()
	publisher := quote.NewPublisher(cache, bus, cfg.QuoteInterval, cfg.QuoteVolatility, precision)

	balances := balance.NewStore()
	ledgerSvc := ledger.New(registry, cache, balances, jour)

	users := account.NewStore()
	authSvc := auth.NewService(users, ledgerSvc, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL, startingBalance)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.RegisterAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.WithError(err).Fatal("admin seed")
		}
	}

	reportSvc := report.NewService(ledgerSvc, cache)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:   auth.NewHandler(authSvc),
		LedgerHandler: ledger.NewHandler(ledgerSvc),
		QuoteHandler:  quote.NewHandler(registry, cache, publisher),
		ReportHandler: report.NewHandler(reportSvc),
		AdminHandler:  admin.NewHandler(users, authSvc, ledgerSvc),
		HealthHandler: health.NewHandler(pinger),
		AuthService:   authSvc,
		InternalToken: cfg.InternalToken,
		WSHandler:     httpserver.NewWSHandler(bus, authSvc, ledgerSvc, cfg.WebSocketOrigin),
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	publisher.Start(ctx)
	go ledgerSvc.Run(ctx, bus.Subscribe())

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server")
	}
}
