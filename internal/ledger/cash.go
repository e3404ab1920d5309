package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// ApplyCash returns the balance after a transaction of the given type and amount.
// Buys and withdrawals debit, sells and deposits credit. A debit larger than the balance
// fails with apperrors.ErrInsufficientBalance and the balance is returned unchanged.
func ApplyCash(balance decimal.Decimal, txType model.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return balance, apperrors.ErrNonPositiveAmount
	}

	switch txType {
	case model.TransactionBuy, model.TransactionWithdraw:
		if amount.GreaterThan(balance) {
			return balance, fmt.Errorf("%w: need %s, have %s", apperrors.ErrInsufficientBalance,
				RoundMoney(amount).StringFixed(2), RoundMoney(balance).StringFixed(2))
		}
		return balance.Sub(amount), nil
	case model.TransactionSell, model.TransactionDeposit:
		return balance.Add(amount), nil
	default:
		return balance, fmt.Errorf("unknown transaction type %q", txType)
	}
}

// CashFromTransactions recomputes a balance from completed transactions.
// Unlike ApplyCash it never fails, so a log that went negative is reported as is.
func CashFromTransactions(txs []model.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.Status != model.StatusCompleted {
			continue
		}
		amount := tx.TradeTotal()
		if tx.Type.IsDebit() {
			balance = balance.Sub(amount)
		} else {
			balance = balance.Add(amount)
		}
	}
	return balance
}

// CheckSell verifies that quantity shares of symbol can be sold.
func CheckSell(l Ledger, symbol string, quantity decimal.Decimal) error {
	held := l.Quantity(symbol)
	if quantity.GreaterThan(held) {
		return fmt.Errorf("%w: %s holds %s, requested %s", apperrors.ErrInsufficientShares,
			symbol, held.String(), quantity.String())
	}
	return nil
}
