package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/report"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// ReportHandler serves downloadable statements.
type ReportHandler struct {
	reportService *service.ReportService
	now           func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, now: time.Now}
}

// PortfolioStatement returns an xlsx workbook with the caller's valuation and transactions.
//
// Endpoint: GET /api/report/portfolio
// Query Parameters: start_date, end_date (optional, YYYY-MM-DD or RFC3339)
// Response: 200 OK with an xlsx attachment named portfolio-YYYY-MM-DD.xlsx
// Error: 400 Bad Request for an invalid date range
func (h *ReportHandler) PortfolioStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := request.ParseDateRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
		return
	}

	data, err := h.reportService.PortfolioStatement(r.Context(), auth.UserID(r.Context()), from, to)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToGenerateReport)
		return
	}

	filename := fmt.Sprintf("portfolio-%s.xlsx", h.now().UTC().Format("2006-01-02"))
	response.RespondFile(w, report.ContentType, filename, data)
}
