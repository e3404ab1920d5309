package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

// TestTransactionRepository_List tests filtering and ordering of the transaction log.
//
// WHY: Transactions created in the same microsecond must still fold in the order they
// were written, so the insertion sequence breaks created_at ties. Filters are combined
// with AND and the date range is inclusive on both ends.
func TestTransactionRepository_List(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	user := testutil.CreateUser(t, db, "0")
	other := testutil.CreateUser(t, db, "0")
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	first := testutil.NewTransaction(user.ID).Buy("AAPL", "1", "100").At(day).Build(t, db)
	second := testutil.NewTransaction(user.ID).Sell("AAPL", "1", "110").At(day).Build(t, db)
	testutil.NewTransaction(user.ID).Buy("MSFT", "1", "300").At(day.AddDate(0, 0, 1)).Build(t, db)
	testutil.NewTransaction(user.ID).Deposit("500").WithStatus(model.StatusPending).At(day.AddDate(0, 0, 2)).Build(t, db)
	testutil.NewTransaction(other.ID).Buy("AAPL", "1", "100").At(day).Build(t, db)

	t.Run("chronological with sequence tiebreak", func(t *testing.T) {
		txs, err := repo.List(ctx, user.ID, model.TransactionFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(txs) != 4 {
			t.Fatalf("Expected 4 transactions, got %d", len(txs))
		}
		if txs[0].ID != first.ID || txs[1].ID != second.ID {
			t.Errorf("Expected buy before sell at equal timestamps, got %s then %s", txs[0].Type, txs[1].Type)
		}
		if txs[0].Seq >= txs[1].Seq {
			t.Errorf("Expected increasing sequence, got %d and %d", txs[0].Seq, txs[1].Seq)
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		txs, err := repo.List(ctx, user.ID, model.TransactionFilter{NewestFirst: true, Limit: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(txs) != 2 || txs[0].Type != model.TransactionDeposit || txs[1].Symbol != "MSFT" {
			t.Errorf("Expected deposit then MSFT buy, got %+v", txs)
		}
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name   string
			filter model.TransactionFilter
			want   int
		}{
			{"symbol is normalized", model.TransactionFilter{Symbol: " aapl"}, 2},
			{"types", model.TransactionFilter{Types: []model.TransactionType{model.TransactionBuy}}, 2},
			{"status", model.TransactionFilter{Status: model.StatusPending}, 1},
			{"date range inclusive", model.TransactionFilter{StartDate: day, EndDate: day.AddDate(0, 0, 1)}, 3},
			{"combined", model.TransactionFilter{Symbol: "AAPL", Types: []model.TransactionType{model.TransactionSell}}, 1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				txs, err := repo.List(ctx, user.ID, tt.filter)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(txs) != tt.want {
					t.Errorf("Expected %d transactions, got %d", tt.want, len(txs))
				}
			})
		}
	})

	t.Run("completed trades", func(t *testing.T) {
		txs, err := repo.ListCompletedTrades(ctx, user.ID, "AAPL")
		if err != nil {
			t.Fatalf("ListCompletedTrades() error = %v", err)
		}
		if len(txs) != 2 {
			t.Errorf("Expected 2 AAPL trades, got %d", len(txs))
		}

		symbols, err := repo.TradedSymbols(ctx)
		if err != nil {
			t.Fatalf("TradedSymbols() error = %v", err)
		}
		if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
			t.Errorf("Expected [AAPL MSFT], got %v", symbols)
		}
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	owner := testutil.CreateUser(t, db, "0")
	stranger := testutil.CreateUser(t, db, "0")
	tx := testutil.NewTransaction(owner.ID).Buy("AAPL", "0.5", "201.30").Build(t, db)

	got, err := repo.GetByID(ctx, owner.ID, tx.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	testutil.AssertDecimal(t, "quantity", got.Quantity, "0.5")
	testutil.AssertDecimal(t, "total", got.Total, "100.65")
	if !got.CreatedAt.Equal(tx.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("Expected created at %v, got %v", tx.CreatedAt, got.CreatedAt)
	}

	if _, err := repo.GetByID(ctx, stranger.ID, tx.ID); !errors.Is(err, apperrors.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound for another user, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "", tx.ID); err != nil {
		t.Errorf("Expected lookup without owner to succeed, got %v", err)
	}
}

func TestTransactionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	user := testutil.CreateUser(t, db, "0")
	tx := testutil.NewTransaction(user.ID).Deposit("100").WithStatus(model.StatusPending).Build(t, db)

	if err := repo.UpdateStatus(ctx, tx.ID, model.StatusPending, model.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	err := repo.UpdateStatus(ctx, tx.ID, model.StatusPending, model.StatusCancelled)
	if !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
		t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
	}

	err = repo.UpdateStatus(ctx, testutil.MakeID(), model.StatusPending, model.StatusCompleted)
	if !errors.Is(err, apperrors.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}

	count, err := repo.CountCompleted(ctx, user.ID, model.TransactionDeposit)
	if err != nil {
		t.Fatalf("CountCompleted() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 completed deposit, got %d", count)
	}
}

func TestTransactionRepository_CorruptRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	user := testutil.CreateUser(t, db, "0")
	tx := testutil.NewTransaction(user.ID).Build(t, db)

	if _, err := db.Exec(`UPDATE "transaction" SET total = 'abc' WHERE id = ?`, tx.ID); err != nil {
		t.Fatalf("failed to corrupt row: %v", err)
	}

	if _, err := repo.List(ctx, user.ID, model.TransactionFilter{}); !errors.Is(err, apperrors.ErrDataInconsistency) {
		t.Errorf("Expected ErrDataInconsistency, got %v", err)
	}
}
