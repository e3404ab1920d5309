package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a catalog entry. Only active stocks can be bought.
type Stock struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StockWithPrice is a catalog entry joined with its last-known price, if any.
type StockWithPrice struct {
	Stock
	LastPrice *decimal.Decimal `json:"lastPrice,omitempty"`
	AsOf      *time.Time       `json:"asOf,omitempty"`
}

// Quote is a price observation for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"asOf"`
	Source string          `json:"source"`
}

// PriceRefreshResult summarizes one refresh run.
type PriceRefreshResult struct {
	Requested int      `json:"requested"`
	Updated   int      `json:"updated"`
	Failed    []string `json:"failed"`
}

// PriceHistory is the quotes recorded for one symbol over a period, oldest first.
type PriceHistory struct {
	Symbol  string    `json:"symbol"`
	Period  string    `json:"period"`
	Since   time.Time `json:"since"`
	History []Quote   `json:"history"`
}
