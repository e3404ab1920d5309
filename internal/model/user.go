package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account holder with a cash wallet.
// Balance is only changed inside a unit of work together with the transaction that justifies it.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Username     string          `json:"username"`
	Balance      decimal.Decimal `json:"balance"`
	ReferralCode string          `json:"referralCode"`
	ReferredBy   string          `json:"referredBy,omitempty"`
	Role         string          `json:"role"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
