package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

const walletHistoryLimit = 100

// WalletService handles cash movements in and out of a user's account.
type WalletService struct {
	uow             *UnitOfWork
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
	referrals       *ReferralService
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	uow *UnitOfWork,
	userRepo *repository.UserRepository,
	transactionRepo *repository.TransactionRepository,
	referrals *ReferralService,
) *WalletService {
	return &WalletService{
		uow:             uow,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		referrals:       referrals,
	}
}

// Balance returns the stored cash balance of userID.
func (s *WalletService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.userRepo.GetBalance(ctx, userID)
}

// Deposit records a deposit. Card deposits complete immediately and credit the balance;
// bank transfers are stored as pending until ConfirmDeposit or CancelDeposit.
func (s *WalletService) Deposit(ctx context.Context, userID string, req request.DepositRequest) (*model.Transaction, error) {
	transaction := &model.Transaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		Type:          model.TransactionDeposit,
		Total:         req.Amount,
		Status:        model.StatusCompleted,
		ReferenceCode: newReferenceCode(RefPrefixDeposit),
	}
	if req.PaymentMethod == request.PaymentBankTransfer {
		transaction.Status = model.StatusPending
	}

	err := s.uow.Run(ctx, userID, func(ctx context.Context, r Repos) error {
		user, err := activeUser(ctx, r, userID)
		if err != nil {
			return err
		}

		next := user.Balance
		if transaction.Status == model.StatusCompleted {
			if next, err = ledger.ApplyCash(user.Balance, model.TransactionDeposit, req.Amount); err != nil {
				return err
			}
		} else if !req.Amount.IsPositive() {
			return apperrors.ErrNonPositiveAmount
		}

		transaction.CreatedAt = nowUTC()
		if err := r.Transactions.Insert(ctx, transaction); err != nil {
			return err
		}
		if transaction.Status != model.StatusCompleted {
			return nil
		}
		return r.Users.UpdateBalance(ctx, userID, user.Balance, next, transaction.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("deposit recorded",
		"user_id", userID,
		"transaction_id", transaction.ID,
		"status", string(transaction.Status),
		"amount", req.Amount.StringFixed(2),
	)

	if transaction.Status == model.StatusCompleted {
		s.afterDeposit(ctx, userID)
	}
	return transaction, nil
}

// Withdraw debits the balance. Fails with ErrInsufficientBalance when the amount
// exceeds the balance; nothing is written in that case.
func (s *WalletService) Withdraw(ctx context.Context, userID string, req request.WithdrawRequest) (*model.Transaction, error) {
	transaction := &model.Transaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		Type:          model.TransactionWithdraw,
		Total:         req.Amount,
		Status:        model.StatusCompleted,
		ReferenceCode: newReferenceCode(RefPrefixWithdraw),
	}

	err := s.uow.Run(ctx, userID, func(ctx context.Context, r Repos) error {
		user, err := activeUser(ctx, r, userID)
		if err != nil {
			return err
		}

		next, err := ledger.ApplyCash(user.Balance, model.TransactionWithdraw, req.Amount)
		if err != nil {
			return err
		}

		transaction.CreatedAt = nowUTC()
		if err := r.Transactions.Insert(ctx, transaction); err != nil {
			return err
		}
		return r.Users.UpdateBalance(ctx, userID, user.Balance, next, transaction.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("withdrawal recorded",
		"user_id", userID,
		"transaction_id", transaction.ID,
		"amount", req.Amount.StringFixed(2),
		"account", maskAccount(req.BankAccount),
	)
	return transaction, nil
}

// History returns the user's deposits and withdrawals, newest first.
func (s *WalletService) History(ctx context.Context, userID string) ([]model.Transaction, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.transactionRepo.List(ctx, userID, model.TransactionFilter{
		Types:       []model.TransactionType{model.TransactionDeposit, model.TransactionWithdraw},
		NewestFirst: true,
		Limit:       walletHistoryLimit,
	})
}

// ConfirmDeposit completes a pending deposit and credits the balance.
func (s *WalletService) ConfirmDeposit(ctx context.Context, transactionID string) (*model.Transaction, error) {
	t, err := s.settleDeposit(ctx, transactionID, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.afterDeposit(ctx, t.UserID)
	return t, nil
}

// CancelDeposit cancels a pending deposit. The balance is not touched.
func (s *WalletService) CancelDeposit(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return s.settleDeposit(ctx, transactionID, model.StatusCancelled)
}

func (s *WalletService) settleDeposit(ctx context.Context, transactionID string, to model.TransactionStatus) (*model.Transaction, error) {
	pending, err := s.transactionRepo.GetByID(ctx, "", transactionID)
	if err != nil {
		return nil, err
	}
	if pending.Type != model.TransactionDeposit {
		return nil, fmt.Errorf("%w: transaction %s is a %s", apperrors.ErrInvalidStatusTransition, transactionID, pending.Type)
	}

	var settled model.Transaction
	err = s.uow.Run(ctx, pending.UserID, func(ctx context.Context, r Repos) error {
		if err := r.Transactions.UpdateStatus(ctx, transactionID, model.StatusPending, to); err != nil {
			return err
		}
		t, err := r.Transactions.GetByID(ctx, "", transactionID)
		if err != nil {
			return err
		}
		settled = t

		if to != model.StatusCompleted {
			return nil
		}
		user, err := r.Users.GetByID(ctx, t.UserID)
		if err != nil {
			return err
		}
		next, err := ledger.ApplyCash(user.Balance, model.TransactionDeposit, t.Total)
		if err != nil {
			return err
		}
		return r.Users.UpdateBalance(ctx, t.UserID, user.Balance, next, nowUTC())
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("pending deposit settled",
		"user_id", settled.UserID,
		"transaction_id", transactionID,
		"status", string(to),
	)
	return &settled, nil
}

// Reconcile recomputes the balance from completed transactions and compares it with the
// stored balance.
func (s *WalletService) Reconcile(ctx context.Context, userID string) (model.Reconciliation, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.Reconciliation{}, err
	}
	txs, err := s.transactionRepo.ListCompleted(ctx, userID)
	if err != nil {
		return model.Reconciliation{}, err
	}

	computed := ledger.CashFromTransactions(txs)
	diff := user.Balance.Sub(computed)
	rec := model.Reconciliation{
		UserID:          userID,
		StoredBalance:   ledger.RoundMoney(user.Balance),
		ComputedBalance: ledger.RoundMoney(computed),
		Difference:      ledger.RoundMoney(diff),
		Consistent:      diff.IsZero(),
	}
	if !rec.Consistent {
		logging.FromContext(ctx).Warn("balance does not match ledger",
			"user_id", userID,
			"stored", rec.StoredBalance.StringFixed(2),
			"computed", rec.ComputedBalance.StringFixed(2),
		)
	}
	return rec, nil
}

func (s *WalletService) afterDeposit(ctx context.Context, userID string) {
	if s.referrals == nil {
		return
	}
	if err := s.referrals.ActivateOnDeposit(ctx, userID); err != nil {
		logging.FromContext(ctx).Error("referral activation failed", "user_id", userID, "error", err)
	}
}

func activeUser(ctx context.Context, r Repos, userID string) (model.User, error) {
	user, err := r.Users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if !user.IsActive {
		return model.User{}, apperrors.ErrUserInactive
	}
	return user, nil
}

func maskAccount(account string) string {
	if len(account) <= 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}
