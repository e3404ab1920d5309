package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transaction and trading services.
type TransactionHandler struct {
	transactionService *service.TransactionService
	tradingService     *service.TradingService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependencies.
func NewTransactionHandler(transactionService *service.TransactionService, tradingService *service.TradingService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		tradingService:     tradingService,
	}
}

// Transactions handles GET requests to list the caller's transactions, newest first.
//
// Endpoint: GET /api/transaction
// Query Parameters:
//   - type: comma-separated list of buy, sell, deposit, withdraw
//   - symbol: only transactions for this symbol
//   - status: pending, completed, failed or cancelled
//   - start_date, end_date: inclusive bounds, YYYY-MM-DD or RFC3339
//   - limit: 1 to 500, default 100
//
// Response: 200 OK with array of model.Transaction
// Error: 400 Bad Request for invalid query parameters
func (h *TransactionHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := request.ParseTransactionFilters(
		q.Get("type"),
		q.Get("symbol"),
		q.Get("status"),
		q.Get("start_date"),
		q.Get("end_date"),
		q.Get("limit"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	transactions, err := h.transactionService.GetTransactions(r.Context(), auth.UserID(r.Context()), *filter)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}
	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
// Transactions of other users are reported as not found.
//
// Endpoint: GET /api/transaction/{uuid}
// Response: 200 OK with model.Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.transactionService.GetTransaction(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransaction)
		return
	}
	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTrade handles POST requests to buy or sell shares.
// When pricePerShare is omitted the current quote is used.
//
// Endpoint: POST /api/transaction
// Request Body: request.CreateTradeRequest
// Response: 201 Created with model.Transaction
// Error: 400 Bad Request for invalid input
// Error: 409 Conflict if the stock is not tradable
// Error: 422 Unprocessable Entity for insufficient balance or shares
// Error: 503 Service Unavailable if no usable price exists
func (h *TransactionHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTradeRequest](r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	if err := validation.ValidateCreateTrade(req); err != nil {
		respondValidation(w, err)
		return
	}

	transaction, err := h.tradingService.Trade(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)
		return
	}
	response.RespondJSON(w, http.StatusCreated, transaction)
}
