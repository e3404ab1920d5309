package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of ledger entry.
type TransactionType string

// Transaction types. Buy and sell move positions and cash; deposit and withdraw move cash only.
const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
)

// IsTrade reports whether the type moves a position.
func (t TransactionType) IsTrade() bool {
	return t == TransactionBuy || t == TransactionSell
}

// IsDebit reports whether the type removes cash from the balance.
func (t TransactionType) IsDebit() bool {
	return t == TransactionBuy || t == TransactionWithdraw
}

// TransactionStatus is the lifecycle state of a transaction.
// Only completed transactions participate in holdings and cash.
type TransactionStatus string

// Transaction statuses.
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is an append-only ledger entry owned by a single user.
//
// For trades Total is Quantity x UnitPrice rounded to cents; for wallet movements
// Quantity and UnitPrice are zero and Total holds the amount.
// Seq is the insertion order assigned by the store and breaks CreatedAt ties.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Symbol        string            `json:"symbol,omitempty"`
	Name          string            `json:"name,omitempty"`
	Type          TransactionType   `json:"type"`
	Quantity      decimal.Decimal   `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unitPrice"`
	Total         decimal.Decimal   `json:"total"`
	Status        TransactionStatus `json:"status"`
	ReferenceCode string            `json:"referenceCode,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	Seq           int64             `json:"-"`
}

// TradeTotal returns the stored total, deriving it from quantity and price for rows
// written before totals were persisted.
func (t Transaction) TradeTotal() decimal.Decimal {
	if t.Total.IsZero() && t.Type.IsTrade() {
		return t.Quantity.Mul(t.UnitPrice)
	}
	return t.Total
}

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
type TransactionFilter struct {
	Types     []TransactionType
	Symbol    string
	Status    TransactionStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	// NewestFirst reverses the default chronological order.
	NewestFirst bool
}
