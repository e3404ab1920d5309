package testutil

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	// Simple creation with defaults (zero balance, active)
//	user := testutil.NewUser().Build(t, db)
//
//	// Customized user
//	user := testutil.NewUser().
//	    WithBalance("5000").
//	    WithReferredBy(referrer.ID).
//	    Build(t, db)
type UserBuilder struct {
	user model.User
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	username := strings.ToLower(MakeUsername("user"))
	now := time.Now().UTC()
	return &UserBuilder{user: model.User{
		ID:           MakeID(),
		Email:        username + "@example.com",
		Name:         "Test User",
		Username:     username,
		Balance:      decimal.Zero,
		ReferralCode: MakeReferralCode(),
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
}

// WithID sets a custom ID.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.user.ID = id
	return b
}

// WithName sets a custom display name.
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.user.Name = name
	return b
}

// WithUsername sets a custom username and derives the email from it.
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	b.user.Email = username + "@example.com"
	return b
}

// WithBalance sets the starting cash balance.
func (b *UserBuilder) WithBalance(balance string) *UserBuilder {
	b.user.Balance = decimal.RequireFromString(balance)
	return b
}

// WithReferralCode sets the user's own referral code.
func (b *UserBuilder) WithReferralCode(code string) *UserBuilder {
	b.user.ReferralCode = code
	return b
}

// WithReferredBy records who referred the user. No referral row is created.
func (b *UserBuilder) WithReferredBy(referrerID string) *UserBuilder {
	b.user.ReferredBy = referrerID
	return b
}

// Admin gives the user the admin role.
func (b *UserBuilder) Admin() *UserBuilder {
	b.user.Role = model.RoleAdmin
	return b
}

// Inactive disables the account.
func (b *UserBuilder) Inactive() *UserBuilder {
	b.user.IsActive = false
	return b
}

// Model returns the user without storing it.
func (b *UserBuilder) Model() model.User {
	return b.user
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	u := b.user
	if err := repository.NewUserRepository(db).Create(context.Background(), &u); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return u
}

// TransactionBuilder provides a fluent interface for creating test transactions.
// Rows are inserted directly; the user's balance is not adjusted.
//
// Example usage:
//
//	testutil.NewTransaction(user.ID).
//	    Buy("AAPL", "10", "150").
//	    At(day1).
//	    Build(t, db)
type TransactionBuilder struct {
	tx model.Transaction
}

// NewTransaction creates a completed deposit of 100 for userID.
func NewTransaction(userID string) *TransactionBuilder {
	return &TransactionBuilder{tx: model.Transaction{
		ID:            MakeID(),
		UserID:        userID,
		Type:          model.TransactionDeposit,
		Total:         decimal.NewFromInt(100),
		Status:        model.StatusCompleted,
		ReferenceCode: "TST-" + randomAlphanumeric(8),
		CreatedAt:     time.Now().UTC(),
	}}
}

// Buy makes the transaction a purchase. Total is shares x price rounded to cents.
func (b *TransactionBuilder) Buy(symbol, shares, price string) *TransactionBuilder {
	return b.trade(model.TransactionBuy, symbol, shares, price)
}

// Sell makes the transaction a sale. Total is shares x price rounded to cents.
func (b *TransactionBuilder) Sell(symbol, shares, price string) *TransactionBuilder {
	return b.trade(model.TransactionSell, symbol, shares, price)
}

func (b *TransactionBuilder) trade(txType model.TransactionType, symbol, shares, price string) *TransactionBuilder {
	qty := decimal.RequireFromString(shares)
	unit := decimal.RequireFromString(price)
	b.tx.Type = txType
	b.tx.Symbol = symbol
	b.tx.Name = symbol
	b.tx.Quantity = qty
	b.tx.UnitPrice = unit
	b.tx.Total = qty.Mul(unit).Round(2)
	return b
}

// Deposit makes the transaction a deposit of amount.
func (b *TransactionBuilder) Deposit(amount string) *TransactionBuilder {
	b.tx.Type = model.TransactionDeposit
	b.tx.Total = decimal.RequireFromString(amount)
	return b
}

// Withdraw makes the transaction a withdrawal of amount.
func (b *TransactionBuilder) Withdraw(amount string) *TransactionBuilder {
	b.tx.Type = model.TransactionWithdraw
	b.tx.Total = decimal.RequireFromString(amount)
	return b
}

// WithStatus sets the status.
func (b *TransactionBuilder) WithStatus(status model.TransactionStatus) *TransactionBuilder {
	b.tx.Status = status
	return b
}

// At sets the creation time.
func (b *TransactionBuilder) At(t time.Time) *TransactionBuilder {
	b.tx.CreatedAt = t.UTC()
	return b
}

// Build creates the transaction in the database and returns it with its Seq.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx := b.tx
	if err := repository.NewTransactionRepository(db).Insert(context.Background(), &tx); err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return tx
}

// StockBuilder provides a fluent interface for creating catalog entries.
//
// Example usage:
//
//	stock := testutil.NewStock().WithSymbol("AAPL").Build(t, db)
type StockBuilder struct {
	stock model.Stock
}

// NewStock creates an active StockBuilder with a random symbol.
func NewStock() *StockBuilder {
	symbol := MakeSymbol("T")
	return &StockBuilder{stock: model.Stock{
		Symbol:    symbol,
		Name:      MakeSymbolName("Company"),
		Category:  "Technology",
		IsActive:  true,
		UpdatedAt: time.Now().UTC(),
	}}
}

// WithSymbol sets the ticker.
func (b *StockBuilder) WithSymbol(symbol string) *StockBuilder {
	b.stock.Symbol = symbol
	return b
}

// WithName sets the display name.
func (b *StockBuilder) WithName(name string) *StockBuilder {
	b.stock.Name = name
	return b
}

// WithCategory sets the catalog category.
func (b *StockBuilder) WithCategory(category string) *StockBuilder {
	b.stock.Category = category
	return b
}

// Inactive marks the stock as not tradable.
func (b *StockBuilder) Inactive() *StockBuilder {
	b.stock.IsActive = false
	return b
}

// Build creates the stock in the database and returns it.
func (b *StockBuilder) Build(t *testing.T, db *sql.DB) model.Stock {
	t.Helper()

	if err := repository.NewStockRepository(db).Upsert(context.Background(), b.stock); err != nil {
		t.Fatalf("Failed to create test stock: %v", err)
	}
	return b.stock
}

// PriceQuoteBuilder creates a last-known price row.
//
// Example usage:
//
//	testutil.NewPriceQuote("AAPL", "150").At(yesterday).Build(t, db)
type PriceQuoteBuilder struct {
	quote model.Quote
}

// NewPriceQuote creates a quote for symbol observed now.
func NewPriceQuote(symbol, price string) *PriceQuoteBuilder {
	return &PriceQuoteBuilder{quote: model.Quote{
		Symbol: symbol,
		Price:  decimal.RequireFromString(price),
		AsOf:   time.Now().UTC(),
		Source: "test",
	}}
}

// At sets the observation time.
func (b *PriceQuoteBuilder) At(t time.Time) *PriceQuoteBuilder {
	b.quote.AsOf = t.UTC()
	return b
}

// Build stores the quote and returns it.
func (b *PriceQuoteBuilder) Build(t *testing.T, db *sql.DB) model.Quote {
	t.Helper()

	if err := repository.NewPriceRepository(db).Insert(context.Background(), b.quote); err != nil {
		t.Fatalf("Failed to create test price: %v", err)
	}
	return b.quote
}

// Convenience functions

// CreateUser creates an active user with the given balance.
//
// Example usage:
//
//	user := testutil.CreateUser(t, db, "1000")
func CreateUser(t *testing.T, db *sql.DB, balance string) model.User {
	t.Helper()
	return NewUser().WithBalance(balance).Build(t, db)
}

// CreateStock creates an active catalog entry for symbol.
func CreateStock(t *testing.T, db *sql.DB, symbol string) model.Stock {
	t.Helper()
	return NewStock().WithSymbol(symbol).WithName(symbol + " Inc.").Build(t, db)
}

// CreateReferral links referred to referrer with a pending referral.
func CreateReferral(t *testing.T, db *sql.DB, referrerID, referredID string) model.Referral {
	t.Helper()

	ref := model.Referral{
		ID:                MakeID(),
		ReferrerID:        referrerID,
		ReferredUserID:    referredID,
		Status:            model.ReferralPending,
		EarningsGenerated: decimal.Zero,
		CreatedAt:         time.Now().UTC(),
	}
	if err := repository.NewReferralRepository(db).Create(context.Background(), ref); err != nil {
		t.Fatalf("Failed to create test referral: %v", err)
	}
	return ref
}

// GetBalance reads the stored balance of userID.
func GetBalance(t *testing.T, db *sql.DB, userID string) decimal.Decimal {
	t.Helper()

	balance, err := repository.NewUserRepository(db).GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Failed to read balance: %v", err)
	}
	return balance
}
