package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral statuses.
const (
	ReferralPending  = "pending"
	ReferralActive   = "active"
	ReferralInactive = "inactive"
)

// Referral links a referrer to a user who registered with their code.
// It activates when the referred user's first deposit completes.
type Referral struct {
	ID                string          `json:"id"`
	ReferrerID        string          `json:"referrerId"`
	ReferredUserID    string          `json:"referredUserId"`
	ReferredUsername  string          `json:"referredUsername,omitempty"`
	Status            string          `json:"status"`
	EarningsGenerated decimal.Decimal `json:"earningsGenerated"`
	BonusCredited     bool            `json:"bonusCredited"`
	CreatedAt         time.Time       `json:"createdAt"`
	ActivatedAt       *time.Time      `json:"activatedAt,omitempty"`
}

// ReferralStats aggregates a referrer's referrals.
type ReferralStats struct {
	Total         int             `json:"total"`
	Active        int             `json:"active"`
	Pending       int             `json:"pending"`
	Inactive      int             `json:"inactive"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
}

// WatchlistEntry is a symbol a user follows.
type WatchlistEntry struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name,omitempty"`
	LastPrice *decimal.Decimal `json:"lastPrice,omitempty"`
	AsOf      *time.Time       `json:"asOf,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
