package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

// WalletHandler handles the cash side of an account.
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// BalanceResponse wraps the cash balance.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// Balance returns the caller's cash balance.
//
// Endpoint: GET /api/wallet/balance
// Response: 200 OK with BalanceResponse
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.walletService.Balance(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveBalance)
		return
	}
	response.RespondJSON(w, http.StatusOK, BalanceResponse{Balance: ledger.RoundMoney(balance)})
}

// Deposit adds cash. Card deposits complete immediately; bank transfers stay pending
// until confirmed through the internal API.
//
// Endpoint: POST /api/wallet/deposit
// Request Body: request.DepositRequest
// Response: 201 Created with model.Transaction
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.DepositRequest](r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	if err := validation.ValidateDeposit(req); err != nil {
		respondValidation(w, err)
		return
	}

	transaction, err := h.walletService.Deposit(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToDeposit)
		return
	}
	response.RespondJSON(w, http.StatusCreated, transaction)
}

// Withdraw removes cash from the balance.
//
// Endpoint: POST /api/wallet/withdraw
// Request Body: request.WithdrawRequest
// Response: 201 Created with model.Transaction
// Error: 422 Unprocessable Entity if the balance is too low
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.WithdrawRequest](r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	if err := validation.ValidateWithdraw(req); err != nil {
		respondValidation(w, err)
		return
	}

	transaction, err := h.walletService.Withdraw(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToWithdraw)
		return
	}
	response.RespondJSON(w, http.StatusCreated, transaction)
}

// History lists deposits and withdrawals, newest first.
//
// Endpoint: GET /api/wallet/history
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.walletService.History(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}
	response.RespondJSON(w, http.StatusOK, history)
}

// ConfirmDeposit completes a pending deposit.
//
// Endpoint: POST /api/internal/deposit/{uuid}/confirm
// Response: 200 OK with model.Transaction
// Error: 409 Conflict if the deposit is not pending
func (h *WalletHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.walletService.ConfirmDeposit(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToConfirmDeposit)
		return
	}
	response.RespondJSON(w, http.StatusOK, transaction)
}

// CancelDeposit cancels a pending deposit.
//
// Endpoint: POST /api/internal/deposit/{uuid}/cancel
func (h *WalletHandler) CancelDeposit(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.walletService.CancelDeposit(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToConfirmDeposit)
		return
	}
	response.RespondJSON(w, http.StatusOK, transaction)
}

// Reconcile compares a user's stored balance with the balance replayed from the ledger.
//
// Endpoint: GET /api/internal/user/{uuid}/reconcile
// Response: 200 OK with model.Reconciliation
func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.walletService.Reconcile(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToReconcile)
		return
	}
	response.RespondJSON(w, http.StatusOK, rec)
}
