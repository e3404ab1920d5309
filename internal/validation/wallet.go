package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
)

// ValidPaymentMethod contains the accepted deposit payment methods.
var ValidPaymentMethod = map[string]bool{
	request.PaymentCard: true, request.PaymentBankTransfer: true,
}

// ValidateDeposit validates a deposit request.
// Amount must be positive with at most two decimal places.
func ValidateDeposit(req request.DepositRequest) error {
	errors := make(map[string]string)

	if msg := amountError(req.Amount); msg != "" {
		errors["amount"] = msg
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		errors["paymentMethod"] = "paymentMethod is required"
	} else if !ValidPaymentMethod[req.PaymentMethod] {
		errors["paymentMethod"] = fmt.Sprintf("invalid paymentMethod: %s", req.PaymentMethod)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateWithdraw validates a withdrawal request.
func ValidateWithdraw(req request.WithdrawRequest) error {
	errors := make(map[string]string)

	if msg := amountError(req.Amount); msg != "" {
		errors["amount"] = msg
	}

	account := strings.TrimSpace(req.BankAccount)
	if account == "" {
		errors["bankAccount"] = "bankAccount is required"
	} else if len(account) < 4 || len(account) > 34 {
		errors["bankAccount"] = "bankAccount must be between 4 and 34 characters"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func amountError(amount decimal.Decimal) string {
	if !amount.IsPositive() {
		return "amount must be positive"
	}
	if !amount.Equal(amount.Round(2)) {
		return "amount must have at most 2 decimal places"
	}
	return ""
}
