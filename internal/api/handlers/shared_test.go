package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid body", `{"symbol":"AAPL","type":"buy","shares":"1"}`, false},
		{"unknown field", `{"symbol":"AAPL","bogus":true}`, true},
		{"trailing object", `{"symbol":"AAPL"}{"symbol":"MSFT"}`, true},
		{"malformed", `{"symbol":`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			got, err := parseJSON[request.CreateTradeRequest](req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Symbol != "AAPL" {
				t.Errorf("Expected symbol AAPL, got %q", got.Symbol)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&validation.Error{Fields: map[string]string{"amount": "bad"}}, http.StatusBadRequest},
		{fmt.Errorf("deposit: %w", apperrors.ErrNonPositiveAmount), http.StatusBadRequest},
		{apperrors.ErrSelfReferral, http.StatusBadRequest},
		{apperrors.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: ZZZ", apperrors.ErrStockNotFound), http.StatusNotFound},
		{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{apperrors.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{apperrors.ErrStockNotActive, http.StatusConflict},
		{apperrors.ErrConcurrentUpdate, http.StatusConflict},
		{apperrors.ErrInvalidStatusTransition, http.StatusConflict},
		{apperrors.ErrPriceUnavailable, http.StatusServiceUnavailable},
		{apperrors.ErrUserInactive, http.StatusForbidden},
		{apperrors.ErrInvalidToken, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	decode := func(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		return body
	}

	t.Run("client error uses the sentinel text", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		err := fmt.Errorf("%w: need 10.00, have 5.00", apperrors.ErrInsufficientBalance)

		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d", w.Code)
		}
		body := decode(t, w)
		if body["error"] != apperrors.ErrInsufficientBalance.Error() {
			t.Errorf("Expected error %q, got %v", apperrors.ErrInsufficientBalance, body["error"])
		}
		if body["details"] != err.Error() {
			t.Errorf("Expected details %q, got %v", err.Error(), body["details"])
		}
	})

	t.Run("server error uses the fallback", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		respondServiceError(w, r, errors.New("connection reset"), apperrors.ErrFailedToGetDashboard)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", w.Code)
		}
		if body := decode(t, w); body["error"] != apperrors.ErrFailedToGetDashboard.Error() {
			t.Errorf("Expected fallback message, got %v", body["error"])
		}
	})

	t.Run("validation error lists fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)

		respondServiceError(w, r, &validation.Error{Fields: map[string]string{"shares": "shares must be positive"}}, apperrors.ErrFailedToCreateTransaction)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
		body := decode(t, w)
		fields, ok := body["details"].(map[string]any)
		if !ok || fields["shares"] != "shares must be positive" {
			t.Errorf("Expected field details, got %v", body["details"])
		}
	})
}
