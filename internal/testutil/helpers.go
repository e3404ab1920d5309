package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/pricing"
	"github.com/tikalinvest/brokerage-ledger/internal/report"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// TestReferralBonus is the bonus paid by services built with NewTestServices.
const TestReferralBonus = "25"

// TestMaxQuoteAge is the oldest last-known price a test trade accepts.
const TestMaxQuoteAge = 15 * time.Minute

// Services bundles every service wired to one database, sharing one unit of work so
// per-user locking behaves as in production.
type Services struct {
	DB           *sql.DB
	UoW          *service.UnitOfWork
	Prices       *pricing.Service
	Tokens       *auth.TokenIssuer
	Users        *service.UserService
	Wallet       *service.WalletService
	Trading      *service.TradingService
	Transactions *service.TransactionService
	Portfolio    *service.PortfolioService
	Referrals    *service.ReferralService
	Stocks       *service.StockService
	Watchlist    *service.WatchlistService
	Reports      *service.ReportService
	System       *service.SystemService
}

// NewTestServices wires all services against db with provider as the market-data vendor.
//
// Example usage:
//
//	quotes := testutil.NewMockQuoteProvider().WithPrice("AAPL", "150")
//	svc := testutil.NewTestServices(t, db, quotes)
//	tx, err := svc.Trading.Trade(ctx, user.ID, req)
func NewTestServices(t *testing.T, db *sql.DB, provider pricing.QuoteProvider) *Services {
	t.Helper()

	userRepo := repository.NewUserRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	stockRepo := repository.NewStockRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)

	uow := service.NewUnitOfWork(db)
	prices := NewTestPricingService(t, db, provider)
	tokens := NewTestTokenIssuer(t)
	aggregator := ledger.Aggregator{}

	referrals := service.NewReferralService(uow, referralRepo, decimal.RequireFromString(TestReferralBonus))
	portfolio := service.NewPortfolioService(uow, transactionRepo, prices, aggregator)

	return &Services{
		DB:           db,
		UoW:          uow,
		Prices:       prices,
		Tokens:       tokens,
		Users:        service.NewUserService(uow, userRepo, tokens),
		Wallet:       service.NewWalletService(uow, userRepo, transactionRepo, referrals),
		Trading:      service.NewTradingService(uow, stockRepo, prices, aggregator, TestMaxQuoteAge),
		Transactions: service.NewTransactionService(transactionRepo),
		Portfolio:    portfolio,
		Referrals:    referrals,
		Stocks:       service.NewStockService(stockRepo, repository.NewPriceRepository(db), transactionRepo, watchlistRepo, prices),
		Watchlist:    service.NewWatchlistService(watchlistRepo, userRepo),
		Reports:      service.NewReportService(portfolio, userRepo, transactionRepo, report.NewXLSXGenerator()),
		System:       service.NewSystemService(db, map[string]bool{"referrals": true}),
	}
}

// NewTestPricingService creates a price service backed by the price_quote table.
// The fresh cache is disabled so every lookup reaches provider.
func NewTestPricingService(t *testing.T, db *sql.DB, provider pricing.QuoteProvider) *pricing.Service {
	t.Helper()

	svc, err := pricing.NewService(provider, pricing.NewSQLStore(repository.NewPriceRepository(db)), pricing.Options{
		Timeout:    time.Second,
		MaxWorkers: 4,
	})
	if err != nil {
		t.Fatalf("Failed to create pricing service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// NewTestTokenIssuer creates a token issuer with a fresh key and a one hour TTL.
func NewTestTokenIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()

	key, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate token key: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(time.Hour, key)
	if err != nil {
		t.Fatalf("Failed to create token issuer: %v", err)
	}
	return issuer
}

func NewTestWalletService(t *testing.T, db *sql.DB) *service.WalletService {
	t.Helper()
	return NewTestServices(t, db, NewMockQuoteProvider()).Wallet
}

func NewTestTradingService(t *testing.T, db *sql.DB, provider pricing.QuoteProvider) *service.TradingService {
	t.Helper()
	return NewTestServices(t, db, provider).Trading
}

func NewTestPortfolioService(t *testing.T, db *sql.DB, provider pricing.QuoteProvider) *service.PortfolioService {
	t.Helper()
	return NewTestServices(t, db, provider).Portfolio
}

func NewTestUserService(t *testing.T, db *sql.DB) *service.UserService {
	t.Helper()
	return NewTestServices(t, db, NewMockQuoteProvider()).Users
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db, nil)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeSymbolName generates a unique company name for testing.
//
// Example usage:
//
//	name := testutil.MakeSymbolName("Tech Company")
//	// Returns: "Tech Company XYZ789"
func MakeSymbolName(base string) string {
	if base == "" {
		base = "Symbol"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeUsername generates a unique username for testing.
func MakeUsername(base string) string {
	if base == "" {
		base = "user"
	}
	return base + "_" + randomAlphanumeric(8)
}

// MakeReferralCode generates an 8 character referral code.
func MakeReferralCode() string {
	return randomAlphanumeric(8)
}

// Dec parses a decimal literal, failing on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AssertDecimal fails the test unless got equals want numerically.
//
// Example usage:
//
//	testutil.AssertDecimal(t, "balance", balance, "3400.00")
func AssertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("Expected %s %s, got %s", name, want, got.String())
	}
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
