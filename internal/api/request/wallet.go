package request

import "github.com/shopspring/decimal"

// Payment methods accepted for deposits.
const (
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
)

// DepositRequest is the body of POST /api/wallet/deposit.
type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// WithdrawRequest is the body of POST /api/wallet/withdraw.
type WithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	BankAccount string          `json:"bankAccount"`
}
