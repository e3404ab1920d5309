package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/config"
	"github.com/tikalinvest/brokerage-ledger/internal/database"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/marketdata"
	"github.com/tikalinvest/brokerage-ledger/internal/pricing"
	"github.com/tikalinvest/brokerage-ledger/internal/report"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
	"github.com/tikalinvest/brokerage-ledger/internal/scheduler"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

//nolint:gocyclo // Sequential wiring of every component
func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("connected to database", "path", cfg.Database.Path, "version", version.Version)

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	stockRepo := repository.NewStockRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	priceRepo := repository.NewPriceRepository(db)

	// Price lookups
	var store pricing.Store = pricing.NewSQLStore(priceRepo)
	if cfg.Pricing.Store == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		client, err := pricing.NewRedisClient(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		store = pricing.NewRedisStore(client, cfg.Redis.PriceTTL)
		log.Info("storing last-known prices in redis", "addr", addr)
	}

	prices, err := pricing.NewService(marketdata.New(cfg.MarketData), store, pricing.Options{
		FreshTTL:   cfg.Pricing.FreshTTL,
		Timeout:    cfg.MarketData.Timeout,
		MaxWorkers: cfg.Pricing.MaxWorkers,
	})
	if err != nil {
		return err
	}
	defer prices.Close()

	// Session tokens
	tokenKey := cfg.Auth.TokenKey
	if tokenKey == "" {
		if tokenKey, err = auth.GenerateKey(); err != nil {
			return err
		}
		log.Warn("AUTH_TOKEN_KEY not set, sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.TokenTTL, tokenKey)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	if cfg.Auth.InternalAPIKey == "" {
		log.Warn("INTERNAL_API_KEY not set, internal routes are disabled")
	}

	policy, err := ledger.ParseSellCostPolicy(cfg.Ledger.SellCostPolicy)
	if err != nil {
		return err
	}
	bonus, err := decimal.NewFromString(cfg.Referral.Bonus)
	if err != nil || bonus.IsNegative() {
		return fmt.Errorf("invalid REFERRAL_BONUS: %q", cfg.Referral.Bonus)
	}

	// Create services
	uow := service.NewUnitOfWork(db)
	aggregator := ledger.Aggregator{Policy: policy}
	referralService := service.NewReferralService(uow, referralRepo, bonus)
	portfolioService := service.NewPortfolioService(uow, transactionRepo, prices, aggregator)
	stockService := service.NewStockService(stockRepo, priceRepo, transactionRepo, watchlistRepo, prices)

	services := api.Services{
		System: service.NewSystemService(db, map[string]bool{
			"referrals":       bonus.IsPositive(),
			"redis_prices":    cfg.Pricing.Store == "redis",
			"price_scheduler": cfg.Scheduler.Enabled,
		}),
		Users:        service.NewUserService(uow, userRepo, tokens),
		Wallet:       service.NewWalletService(uow, userRepo, transactionRepo, referralService),
		Trading:      service.NewTradingService(uow, stockRepo, prices, aggregator, cfg.Pricing.MaxTradeQuote),
		Transactions: service.NewTransactionService(transactionRepo),
		Portfolio:    portfolioService,
		Referrals:    referralService,
		Stocks:       stockService,
		Watchlist:    service.NewWatchlistService(watchlistRepo, userRepo),
		Reports:      service.NewReportService(portfolioService, userRepo, transactionRepo, report.NewXLSXGenerator()),
	}

	// Background price refresh
	sched := scheduler.New(2 * time.Minute)
	if cfg.Scheduler.Enabled {
		refresh := func(ctx context.Context) error {
			result, err := stockService.RefreshPrices(ctx, nil)
			if err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				logging.FromContext(ctx).Warn("price refresh incomplete", "failed", result.Failed)
			}
			return nil
		}
		if err := sched.AddJob("price-refresh", cfg.Scheduler.PriceRefreshSpec, refresh); err != nil {
			return err
		}
		sched.Start()
		log.Info("scheduler started", "jobs", sched.Jobs(), "price_refresh", cfg.Scheduler.PriceRefreshSpec)

		// Warm the price cache once instead of waiting for the first tick.
		go sched.RunNow("price-warmup", refresh)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(services, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
