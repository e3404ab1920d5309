package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

func TestWalletHandler(t *testing.T) {
	setup := func(t *testing.T) (*WalletHandler, *testutil.Services) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewMockQuoteProvider())
		return NewWalletHandler(svc.Wallet), svc
	}

	t.Run("card deposit credits the balance", func(t *testing.T) {
		handler, svc := setup(t)
		user := testutil.CreateUser(t, svc.DB, "0")

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/wallet/deposit",
			map[string]any{"amount": "250.50", "paymentMethod": "card"})
		w := httptest.NewRecorder()
		handler.Deposit(w, testutil.WithUser(req, user.ID))

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var tx model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&tx)
		if tx.Status != model.StatusCompleted {
			t.Errorf("Expected completed, got %s", tx.Status)
		}

		w = httptest.NewRecorder()
		handler.Balance(w, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/api/wallet/balance", nil), user.ID))
		var balance BalanceResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&balance)
		testutil.AssertDecimal(t, "balance", balance.Balance, "250.50")
	})

	t.Run("rejects invalid deposits", func(t *testing.T) {
		handler, svc := setup(t)
		user := testutil.CreateUser(t, svc.DB, "0")

		bodies := []map[string]any{
			{"amount": "0", "paymentMethod": "card"},
			{"amount": "10.001", "paymentMethod": "card"},
			{"amount": "10", "paymentMethod": "cash"},
			{"amount": "10", "paymentMethod": "card", "extra": 1},
		}
		for _, body := range bodies {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/wallet/deposit", body)
			w := httptest.NewRecorder()
			handler.Deposit(w, testutil.WithUser(req, user.ID))

			if w.Code != http.StatusBadRequest {
				t.Errorf("%v: expected 400, got %d", body, w.Code)
			}
		}
		testutil.AssertRowCount(t, svc.DB, `"transaction"`, 0)
	})

	t.Run("withdraw beyond balance is 422", func(t *testing.T) {
		handler, svc := setup(t)
		user := testutil.CreateUser(t, svc.DB, "100")

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/wallet/withdraw",
			map[string]any{"amount": "100.01", "bankAccount": "NL91ABNA0417164300"})
		w := httptest.NewRecorder()
		handler.Withdraw(w, testutil.WithUser(req, user.ID))

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, svc.DB, user.ID), "100")
	})

	t.Run("bank transfer stays pending until confirmed", func(t *testing.T) {
		handler, svc := setup(t)
		user := testutil.CreateUser(t, svc.DB, "0")

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/wallet/deposit",
			map[string]any{"amount": "500", "paymentMethod": "bank_transfer"})
		w := httptest.NewRecorder()
		handler.Deposit(w, testutil.WithUser(req, user.ID))

		var pending model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&pending)
		if pending.Status != model.StatusPending {
			t.Fatalf("Expected pending, got %s", pending.Status)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, svc.DB, user.ID), "0")

		confirm := func() int {
			r := testutil.NewRequestWithURLParams(http.MethodPost, "/api/internal/deposit/"+pending.ID+"/confirm",
				map[string]string{"uuid": pending.ID})
			w := httptest.NewRecorder()
			handler.ConfirmDeposit(w, r)
			return w.Code
		}
		if code := confirm(); code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", code)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, svc.DB, user.ID), "500")

		if code := confirm(); code != http.StatusConflict {
			t.Errorf("Expected 409 on second confirm, got %d", code)
		}
		testutil.AssertDecimal(t, "balance", testutil.GetBalance(t, svc.DB, user.ID), "500")
	})

	t.Run("confirming an unknown deposit is 404", func(t *testing.T) {
		handler, _ := setup(t)
		id := testutil.MakeID()

		w := httptest.NewRecorder()
		handler.CancelDeposit(w, testutil.NewRequestWithURLParams(http.MethodPost, "/", map[string]string{"uuid": id}))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("history and reconcile", func(t *testing.T) {
		handler, svc := setup(t)
		user := testutil.CreateUser(t, svc.DB, "0")
		for _, amount := range []string{"100", "40"} {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/wallet/deposit",
				map[string]any{"amount": amount, "paymentMethod": "card"})
			handler.Deposit(httptest.NewRecorder(), testutil.WithUser(req, user.ID))
		}

		w := httptest.NewRecorder()
		handler.History(w, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/api/wallet/history", nil), user.ID))
		var history []model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&history)
		if len(history) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(history))
		}

		w = httptest.NewRecorder()
		handler.Reconcile(w, testutil.NewRequestWithURLParams(http.MethodGet, "/", map[string]string{"uuid": user.ID}))
		var rec model.Reconciliation
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&rec)
		if !rec.Consistent {
			t.Errorf("Expected consistent balance, got %+v", rec)
		}
		testutil.AssertDecimal(t, "computed", rec.ComputedBalance, "140")
	})
}
