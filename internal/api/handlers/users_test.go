package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

func TestUserHandler_Register(t *testing.T) {
	setup := func(t *testing.T) (*UserHandler, *testutil.Services) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewMockQuoteProvider())
		return NewUserHandler(svc.Users), svc
	}

	register := func(t *testing.T, h *UserHandler, body map[string]any) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		h.Register(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/internal/user", body))
		return w
	}

	t.Run("returns a session whose token authenticates", func(t *testing.T) {
		handler, svc := setup(t)

		w := register(t, handler, map[string]any{"email": "ann@example.com", "name": "Ann", "username": "ann"})
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var session service.Session
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&session)
		if session.Token == "" || session.ExpiresIn <= 0 {
			t.Errorf("Expected a token with expiry, got %+v", session)
		}
		testutil.AssertDecimal(t, "balance", session.User.Balance, "0")

		claims, err := svc.Users.Authenticate(t.Context(), session.Token)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if claims.UserID != session.User.ID {
			t.Errorf("Expected claims for %s, got %s", session.User.ID, claims.UserID)
		}
	})

	t.Run("rejects invalid input and duplicates", func(t *testing.T) {
		handler, _ := setup(t)

		if w := register(t, handler, map[string]any{"email": "not-an-email", "name": "A", "username": "ab"}); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}

		body := map[string]any{"email": "bob@example.com", "name": "Bob", "username": "bob"}
		register(t, handler, body)
		if w := register(t, handler, body); w.Code != http.StatusConflict {
			t.Errorf("Expected 409 for duplicate, got %d", w.Code)
		}

		body = map[string]any{"email": "cy@example.com", "name": "Cy", "username": "cy1", "referralCode": "ZZZZZZZZ"}
		if w := register(t, handler, body); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for unknown referral code, got %d", w.Code)
		}
	})
}

func TestUserHandler_MeAndToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestServices(t, db, testutil.NewMockQuoteProvider())
	handler := NewUserHandler(svc.Users)

	user := testutil.CreateUser(t, db, "42")
	inactive := testutil.NewUser().Inactive().Build(t, db)

	t.Run("me", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Me(w, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), user.ID))

		var got model.User
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&got)
		if got.ID != user.ID {
			t.Errorf("Expected %s, got %s", user.ID, got.ID)
		}
		testutil.AssertDecimal(t, "balance", got.Balance, "42")
	})

	t.Run("token for inactive user is 403", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.IssueToken(w, testutil.NewRequestWithURLParams(http.MethodPost, "/", map[string]string{"uuid": inactive.ID}))
		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", w.Code)
		}
	})

	t.Run("token for unknown user is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.IssueToken(w, testutil.NewRequestWithURLParams(http.MethodPost, "/", map[string]string{"uuid": testutil.MakeID()}))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
