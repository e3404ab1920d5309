package request

import "github.com/shopspring/decimal"

// CreateTradeRequest is the body of POST /api/transaction.
// PricePerShare is optional; when omitted the current quote is used.
type CreateTradeRequest struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name,omitempty"`
	Type          string           `json:"type"`
	Shares        decimal.Decimal  `json:"shares"`
	PricePerShare *decimal.Decimal `json:"pricePerShare,omitempty"`
}
