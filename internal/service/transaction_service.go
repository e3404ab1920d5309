package service

import (
	"context"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// TransactionService serves a user's transaction history.
// Writes go through TradingService and WalletService.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
	}
}

// GetTransactions retrieves the user's transactions matching filter.
func (s *TransactionService) GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	return s.transactionRepo.List(ctx, userID, filter)
}

// GetTransaction retrieves a single transaction owned by userID.
// Returns ErrTransactionNotFound for transactions of other users.
func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, userID, transactionID)
}
