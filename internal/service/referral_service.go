package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// ReferralService manages the referral program.
type ReferralService struct {
	uow          *UnitOfWork
	referralRepo *repository.ReferralRepository
	bonus        decimal.Decimal
}

// NewReferralService creates a new ReferralService. A zero bonus activates referrals
// without paying anything.
func NewReferralService(uow *UnitOfWork, referralRepo *repository.ReferralRepository, bonus decimal.Decimal) *ReferralService {
	return &ReferralService{
		uow:          uow,
		referralRepo: referralRepo,
		bonus:        bonus,
	}
}

// List returns the referrals made by referrerID.
func (s *ReferralService) List(ctx context.Context, referrerID string) ([]model.Referral, error) {
	return s.referralRepo.ListByReferrer(ctx, referrerID)
}

// Stats counts referrals by status and sums their earnings.
func (s *ReferralService) Stats(ctx context.Context, referrerID string) (model.ReferralStats, error) {
	refs, err := s.referralRepo.ListByReferrer(ctx, referrerID)
	if err != nil {
		return model.ReferralStats{}, err
	}

	stats := model.ReferralStats{TotalEarnings: decimal.Zero}
	for _, ref := range refs {
		stats.Total++
		switch ref.Status {
		case model.ReferralActive:
			stats.Active++
		case model.ReferralPending:
			stats.Pending++
		case model.ReferralInactive:
			stats.Inactive++
		}
		stats.TotalEarnings = stats.TotalEarnings.Add(ref.EarningsGenerated)
	}
	stats.TotalEarnings = ledger.RoundMoney(stats.TotalEarnings)
	return stats, nil
}

// ActivateOnDeposit is called after a deposit of userID completes. If userID was
// referred and the referral is still pending, it is activated and the referrer is paid
// the bonus once. The payout runs in the referrer's own unit of work.
func (s *ReferralService) ActivateOnDeposit(ctx context.Context, userID string) error {
	ref, err := s.referralRepo.GetByReferredUser(ctx, userID)
	if errors.Is(err, apperrors.ErrReferralNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if ref.Status != model.ReferralPending {
		return nil
	}

	var paid *model.Transaction
	err = s.uow.Run(ctx, ref.ReferrerID, func(ctx context.Context, r Repos) error {
		now := nowUTC()
		activated, err := r.Referrals.Activate(ctx, ref.ID, now)
		if err != nil || !activated {
			return err
		}
		if !s.bonus.IsPositive() {
			return nil
		}

		credited, err := r.Referrals.MarkBonusCredited(ctx, ref.ID, s.bonus)
		if err != nil || !credited {
			return err
		}

		referrer, err := r.Users.GetByID(ctx, ref.ReferrerID)
		if err != nil {
			return err
		}
		next, err := ledger.ApplyCash(referrer.Balance, model.TransactionDeposit, s.bonus)
		if err != nil {
			return err
		}

		paid = &model.Transaction{
			ID:            uuid.New().String(),
			UserID:        referrer.ID,
			Type:          model.TransactionDeposit,
			Total:         s.bonus,
			Status:        model.StatusCompleted,
			ReferenceCode: RefReferralBonus,
			CreatedAt:     now,
		}
		if err := r.Transactions.Insert(ctx, paid); err != nil {
			return err
		}
		return r.Users.UpdateBalance(ctx, referrer.ID, referrer.Balance, next, now)
	})
	if err != nil {
		return fmt.Errorf("failed to activate referral %s: %w", ref.ID, err)
	}

	log := logging.FromContext(ctx)
	log.Info("referral activated", "referral_id", ref.ID, "referrer_id", ref.ReferrerID, "referred_user_id", userID)
	if paid != nil {
		log.Info("referral bonus credited", "referrer_id", ref.ReferrerID, "amount", s.bonus.StringFixed(2))
	}
	return nil
}
