package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

func deposit(amount, method string) request.DepositRequest {
	return request.DepositRequest{Amount: decimal.RequireFromString(amount), PaymentMethod: method}
}

func withdraw(amount string) request.WithdrawRequest {
	return request.WithdrawRequest{Amount: decimal.RequireFromString(amount), BankAccount: "DE89370400440532013000"}
}

// TestWalletService_Deposit tests both deposit flows.
//
// WHY: Card deposits settle immediately. Bank transfers are recorded as pending and must
// not change the balance until an operator confirms them; cancelling leaves the balance
// untouched and neither action can be applied twice.
func TestWalletService_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("card deposit credits immediately", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "0")

		tx, err := svc.Deposit(ctx, user.ID, deposit("250.50", request.PaymentCard))
		if err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		if tx.Status != model.StatusCompleted {
			t.Errorf("Expected completed, got %s", tx.Status)
		}
		if len(tx.ReferenceCode) != len("DEP-")+8 {
			t.Errorf("Expected DEP reference code, got %q", tx.ReferenceCode)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, db, user.ID), "250.50")
	})

	t.Run("bank transfer stays pending until confirmed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "0")

		tx, err := svc.Deposit(ctx, user.ID, deposit("1000", request.PaymentBankTransfer))
		if err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		if tx.Status != model.StatusPending {
			t.Fatalf("Expected pending, got %s", tx.Status)
		}
		testutil.AssertDecimal(t, "balance before confirm", testutil.GetBalance(t, db, user.ID), "0")

		confirmed, err := svc.ConfirmDeposit(ctx, tx.ID)
		if err != nil {
			t.Fatalf("ConfirmDeposit() error = %v", err)
		}
		if confirmed.Status != model.StatusCompleted {
			t.Errorf("Expected completed, got %s", confirmed.Status)
		}
		testutil.AssertDecimal(t, "balance after confirm", testutil.GetBalance(t, db, user.ID), "1000")

		_, err = svc.ConfirmDeposit(ctx, tx.ID)
		if !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
			t.Errorf("Expected ErrInvalidStatusTransition on second confirm, got %v", err)
		}
		testutil.AssertDecimal(t, "balance after second confirm", testutil.GetBalance(t, db, user.ID), "1000")
	})

	t.Run("cancel leaves balance untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "0")

		tx, err := svc.Deposit(ctx, user.ID, deposit("1000", request.PaymentBankTransfer))
		if err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}

		cancelled, err := svc.CancelDeposit(ctx, tx.ID)
		if err != nil {
			t.Fatalf("CancelDeposit() error = %v", err)
		}
		if cancelled.Status != model.StatusCancelled {
			t.Errorf("Expected cancelled, got %s", cancelled.Status)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, db, user.ID), "0")

		if _, err := svc.ConfirmDeposit(ctx, tx.ID); !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
			t.Errorf("Expected ErrInvalidStatusTransition confirming a cancelled deposit, got %v", err)
		}
	})

	t.Run("confirming a non-deposit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "0")
		buy := testutil.NewTransaction(user.ID).Buy("AAPL", "1", "10").WithStatus(model.StatusPending).Build(t, db)

		if _, err := svc.ConfirmDeposit(ctx, buy.ID); !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
			t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)

		if _, err := svc.ConfirmDeposit(ctx, testutil.MakeID()); !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Errorf("Expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.NewUser().Inactive().Build(t, db)

		_, err := svc.Deposit(ctx, user.ID, deposit("10", request.PaymentCard))

		if !errors.Is(err, apperrors.ErrUserInactive) {
			t.Errorf("Expected ErrUserInactive, got %v", err)
		}
		testutil.AssertRowCount(t, db, `"transaction"`, 0)
	})
}

func TestWalletService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("debits balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "500")

		tx, err := svc.Withdraw(ctx, user.ID, withdraw("200.25"))
		if err != nil {
			t.Fatalf("Withdraw() error = %v", err)
		}
		if tx.Type != model.TransactionWithdraw {
			t.Errorf("Expected withdraw, got %s", tx.Type)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, db, user.ID), "299.75")
	})

	t.Run("insufficient balance writes nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "100")

		_, err := svc.Withdraw(ctx, user.ID, withdraw("100.01"))

		if !errors.Is(err, apperrors.ErrInsufficientBalance) {
			t.Errorf("Expected ErrInsufficientBalance, got %v", err)
		}
		testutil.AssertRowCount(t, db, `"transaction"`, 0)
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, db, user.ID), "100")
	})

	t.Run("unknown user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)

		_, err := svc.Withdraw(ctx, testutil.MakeID(), withdraw("1"))

		if !errors.Is(err, apperrors.ErrUserNotFound) {
			t.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestWalletService_History(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestWalletService(t, db)
	user := testutil.CreateUser(t, db, "0")

	first, err := svc.Deposit(ctx, user.ID, deposit("100", request.PaymentCard))
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	testutil.NewTransaction(user.ID).Buy("AAPL", "1", "10").Build(t, db)
	last, err := svc.Withdraw(ctx, user.ID, withdraw("40"))
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	history, err := svc.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("Expected only wallet movements, got %d entries", len(history))
	}
	if history[0].ID != last.ID || history[1].ID != first.ID {
		t.Errorf("Expected newest first, got %s then %s", history[0].Type, history[1].Type)
	}
}

// TestWalletService_Reconcile verifies that the stored balance matches the ledger.
//
// WHY: Every balance change is committed with the transaction that justifies it, so an
// account that starts at zero always reconciles. A balance edited outside the app shows
// up as a difference.
func TestWalletService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent after mixed activity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewMockQuoteProvider())
		testutil.CreateStock(t, db, "AAPL")
		user := testutil.CreateUser(t, db, "0")

		if _, err := svc.Wallet.Deposit(ctx, user.ID, deposit("5000", request.PaymentCard)); err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		if _, err := svc.Wallet.Deposit(ctx, user.ID, deposit("700", request.PaymentBankTransfer)); err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		if _, err := svc.Trading.Trade(ctx, user.ID, tradeReq("buy", "AAPL", "3", "101.37")); err != nil {
			t.Fatalf("Trade() error = %v", err)
		}
		if _, err := svc.Trading.Trade(ctx, user.ID, tradeReq("sell", "AAPL", "1", "110.10")); err != nil {
			t.Fatalf("Trade() error = %v", err)
		}
		if _, err := svc.Wallet.Withdraw(ctx, user.ID, withdraw("1000")); err != nil {
			t.Fatalf("Withdraw() error = %v", err)
		}

		rec, err := svc.Wallet.Reconcile(ctx, user.ID)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if !rec.Consistent {
			t.Errorf("Expected consistent balance, got %+v", rec)
		}
		// 5000 - 304.11 + 110.10 - 1000
		testutil.AssertDecimal(t, "stored", rec.StoredBalance, "3805.99")
	})

	t.Run("detects drift", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestWalletService(t, db)
		user := testutil.CreateUser(t, db, "0")
		if _, err := svc.Deposit(ctx, user.ID, deposit("100", request.PaymentCard)); err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		if _, err := db.Exec(`UPDATE "user" SET balance = '150' WHERE id = ?`, user.ID); err != nil {
			t.Fatalf("failed to tamper balance: %v", err)
		}

		rec, err := svc.Reconcile(ctx, user.ID)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if rec.Consistent {
			t.Error("Expected inconsistency to be detected")
		}
		testutil.AssertDecimal(t, "difference", rec.Difference, "50")
	})
}
