package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

// StockHandler serves the stock catalog and quotes.
type StockHandler struct {
	stockService *service.StockService
	now          func() time.Time
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService *service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService, now: time.Now}
}

// CategoriesResponse lists the catalog categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// Stocks lists the tradable catalog with last-known prices.
//
// Endpoint: GET /api/stocks
// Query Parameters:
//   - category: only stocks in this category
//
// Response: 200 OK with array of model.StockWithPrice
func (h *StockHandler) Stocks(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	stocks, err := h.stockService.ListActive(r.Context(), category)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveStocks)
		return
	}
	response.RespondJSON(w, http.StatusOK, stocks)
}

// Stock returns one catalog entry with its current price. A symbol without any price is
// returned with source "unavailable".
//
// Endpoint: GET /api/stocks/{symbol}
// Response: 200 OK with service.StockQuote
// Error: 404 Not Found if the symbol is not in the catalog
func (h *StockHandler) Stock(w http.ResponseWriter, r *http.Request) {
	quote, err := h.stockService.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveStock)
		return
	}
	response.RespondJSON(w, http.StatusOK, quote)
}

// Categories lists the distinct categories of the catalog.
//
// Endpoint: GET /api/stocks/categories
// Response: 200 OK with CategoriesResponse
func (h *StockHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.stockService.Categories(r.Context())
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveStocks)
		return
	}
	response.RespondJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// History returns the recorded quotes of a stock over a period, oldest first.
//
// Endpoint: GET /api/stocks/{symbol}/history
// Query Parameters:
//   - period: 1D, 1W, 1M, 3M, 6M, 1Y or ALL (default 1M)
//   - days: 1 to 3650, overrides period
//
// Response: 200 OK with model.PriceHistory
// Error: 400 Bad Request for invalid query parameters
// Error: 404 Not Found if the symbol is not in the catalog
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, since, err := request.ParseHistoryPeriod(q.Get("period"), q.Get("days"), h.now().UTC())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	history, err := h.stockService.History(r.Context(), chi.URLParam(r, "symbol"), since)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePriceHistory)
		return
	}
	history.Period = period
	response.RespondJSON(w, http.StatusOK, history)
}

// UpsertStock creates or updates a catalog entry.
//
// Endpoint: PUT /api/internal/stock
// Request Body: request.UpsertStockRequest
// Response: 200 OK with model.Stock
func (h *StockHandler) UpsertStock(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpsertStockRequest](r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	if err := validation.ValidateUpsertStock(req); err != nil {
		respondValidation(w, err)
		return
	}

	stock, err := h.stockService.Upsert(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToSaveStock)
		return
	}
	response.RespondJSON(w, http.StatusOK, stock)
}

// RefreshPrices fetches fresh quotes for the given symbols, or every tracked symbol when
// the body is empty or lists none.
//
// Endpoint: POST /api/internal/price/refresh
// Request Body: optional request.RefreshPricesRequest
// Response: 200 OK with model.PriceRefreshResult
func (h *StockHandler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshPricesRequest
	if r.ContentLength != 0 {
		parsed, err := parseJSON[request.RefreshPricesRequest](r)
		if err != nil {
			respondValidation(w, err)
			return
		}
		req = parsed
	}
	if err := validation.ValidateRefreshPrices(req); err != nil {
		respondValidation(w, err)
		return
	}

	result, err := h.stockService.RefreshPrices(r.Context(), req.Symbols)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRefreshPrices)
		return
	}
	response.RespondJSON(w, http.StatusOK, result)
}
