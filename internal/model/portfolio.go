package model

import "github.com/shopspring/decimal"

// Dashboard is the account overview shown on the home screen.
// All monetary values are rounded to two decimal places.
type Dashboard struct {
	Balance            decimal.Decimal `json:"totalBalance"`
	TotalInvested      decimal.Decimal `json:"totalInvested"`
	TotalGains         decimal.Decimal `json:"totalGains"`
	GainsPercentage    decimal.Decimal `json:"gainsPercentage"`
	PortfolioValue     decimal.Decimal `json:"portfolioValue"`
	RealizedGainLoss   decimal.Decimal `json:"realizedGainLoss"`
	Stale              bool            `json:"stale"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

// Reconciliation compares the stored balance with the balance derived from the ledger.
type Reconciliation struct {
	UserID          string          `json:"userId"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	ComputedBalance decimal.Decimal `json:"computedBalance"`
	Difference      decimal.Decimal `json:"difference"`
	Consistent      bool            `json:"consistent"`
}
