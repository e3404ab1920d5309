package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tikalinvest/brokerage-ledger/internal/api/handlers"
	custommiddleware "github.com/tikalinvest/brokerage-ledger/internal/api/middleware"
	"github.com/tikalinvest/brokerage-ledger/internal/config"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// Services holds everything the HTTP layer calls into.
type Services struct {
	System       *service.SystemService
	Users        *service.UserService
	Wallet       *service.WalletService
	Trading      *service.TradingService
	Transactions *service.TransactionService
	Portfolio    *service.PortfolioService
	Referrals    *service.ReferralService
	Stocks       *service.StockService
	Watchlist    *service.WatchlistService
	Reports      *service.ReportService
}

// NewRouter creates and configures the HTTP router.
//
// Routes fall into three groups: public system and catalog routes, user routes that
// require a bearer token, and internal routes that require the X-API-Key header.
func NewRouter(svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(svc.System)
	stockHandler := handlers.NewStockHandler(svc.Stocks)
	userHandler := handlers.NewUserHandler(svc.Users)
	walletHandler := handlers.NewWalletHandler(svc.Wallet)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Trading)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
	watchlistHandler := handlers.NewWatchlistHandler(svc.Watchlist)
	referralHandler := handlers.NewReferralHandler(svc.Referrals)
	reportHandler := handlers.NewReportHandler(svc.Reports)

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", stockHandler.Stocks)
			r.Get("/categories", stockHandler.Categories)
			r.With(custommiddleware.ValidateSymbolMiddleware).Get("/{symbol}", stockHandler.Stock)
			r.With(custommiddleware.ValidateSymbolMiddleware).Get("/{symbol}/history", stockHandler.History)
		})

		// User routes
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireUser(svc.Users))

			r.Get("/me", userHandler.Me)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", walletHandler.Balance)
				r.Post("/deposit", walletHandler.Deposit)
				r.Post("/withdraw", walletHandler.Withdraw)
				r.Get("/history", walletHandler.History)
			})

			r.Route("/transaction", func(r chi.Router) {
				r.Get("/", transactionHandler.Transactions)
				r.Post("/", transactionHandler.CreateTrade)
				r.With(custommiddleware.ValidateUUIDMiddleware).Get("/{uuid}", transactionHandler.GetTransaction)
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/holdings", portfolioHandler.Holdings)
				r.Get("/valuation", portfolioHandler.Valuation)
				r.Get("/dashboard", portfolioHandler.Dashboard)
			})

			r.Route("/watchlist", func(r chi.Router) {
				r.Get("/", watchlistHandler.Watchlist)
				r.With(custommiddleware.ValidateSymbolMiddleware).Post("/{symbol}", watchlistHandler.Toggle)
			})

			r.Route("/referral", func(r chi.Router) {
				r.Get("/", referralHandler.Referrals)
				r.Get("/stats", referralHandler.Stats)
			})

			r.Get("/report/portfolio", reportHandler.PortfolioStatement)
		})

		// Internal routes for the identity provider and operators
		r.Route("/internal", func(r chi.Router) {
			r.Use(custommiddleware.APIKey(cfg.Auth.InternalAPIKey))

			r.Post("/user", userHandler.Register)
			r.Route("/user/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/token", userHandler.IssueToken)
				r.Get("/reconcile", walletHandler.Reconcile)
			})

			r.Route("/deposit/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/confirm", walletHandler.ConfirmDeposit)
				r.Post("/cancel", walletHandler.CancelDeposit)
			})

			r.Put("/stock", stockHandler.UpsertStock)
			r.Post("/price/refresh", stockHandler.RefreshPrices)
		})
	})

	return r
}
