package handlers

import (
	"net/http"

	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// PortfolioHandler handles portfolio-related HTTP requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// Holdings handles GET requests for the caller's open positions and realized results.
// No prices are looked up.
//
// Endpoint: GET /api/portfolio/holdings
// Response: 200 OK with service.HoldingsResponse
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.portfolioService.Holdings(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToGetHoldings)
		return
	}
	response.RespondJSON(w, http.StatusOK, holdings)
}

// Valuation handles GET requests for the caller's holdings marked to market.
// Holdings without a live price carry stale=true; holdings without any price are
// excluded from the totals.
//
// Endpoint: GET /api/portfolio/valuation
// Response: 200 OK with ledger.Valuation
func (h *PortfolioHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.portfolioService.Valuation(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToGetValuation)
		return
	}
	response.RespondJSON(w, http.StatusOK, valuation)
}

// Dashboard handles GET requests for the account summary.
//
// Endpoint: GET /api/portfolio/dashboard
// Response: 200 OK with model.Dashboard
func (h *PortfolioHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.portfolioService.Dashboard(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToGetDashboard)
		return
	}
	response.RespondJSON(w, http.StatusOK, dashboard)
}
