package service

import (
	"context"
	"time"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/report"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

const reportTransactionLimit = 5000

// ReportService builds downloadable portfolio statements.
type ReportService struct {
	portfolio       *PortfolioService
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	generator       *report.XLSXGenerator
}

// NewReportService creates a new ReportService.
func NewReportService(
	portfolio *PortfolioService,
	userRepo *repository.UserRepository,
	transactionRepo *repository.TransactionRepository,
	generator *report.XLSXGenerator,
) *ReportService {
	return &ReportService{
		portfolio:       portfolio,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		generator:       generator,
	}
}

// PortfolioStatement renders the user's current valuation and the transactions between
// from and to (either may be zero) as an xlsx workbook.
func (s *ReportService) PortfolioStatement(ctx context.Context, userID string, from, to time.Time) ([]byte, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	valuation, err := s.portfolio.Valuation(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactionRepo.List(ctx, userID, model.TransactionFilter{
		StartDate: from,
		EndDate:   to,
		Limit:     reportTransactionLimit,
	})
	if err != nil {
		return nil, err
	}

	return s.generator.Generate(ctx, report.PortfolioReport{
		User:         user,
		Valuation:    valuation,
		Transactions: txs,
		From:         from,
		To:           to,
		GeneratedAt:  nowUTC(),
	})
}
