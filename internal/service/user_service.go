package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// maxReferralCodeAttempts bounds retries when a generated referral code collides.
const maxReferralCodeAttempts = 5

// UserService registers accounts and issues session tokens.
type UserService struct {
	uow      *UnitOfWork
	userRepo *repository.UserRepository
	tokens   *auth.TokenIssuer
}

// NewUserService creates a new UserService.
func NewUserService(uow *UnitOfWork, userRepo *repository.UserRepository, tokens *auth.TokenIssuer) *UserService {
	return &UserService{
		uow:      uow,
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Session is returned when a token is issued.
type Session struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expiresIn"`
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Register creates an account with a zero balance and a fresh referral code.
// When req carries a referral code, a pending referral is recorded for its owner.
//
// Returns ErrReferralCodeNotFound for an unknown code and ErrDuplicateEntry when the
// email or username is taken.
func (s *UserService) Register(ctx context.Context, req request.RegisterUserRequest) (*model.User, error) {
	var referrer *model.User
	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		u, err := s.userRepo.GetByReferralCode(ctx, code)
		if err != nil {
			return nil, err
		}
		referrer = &u
	}

	now := nowUTC()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Name:      strings.TrimSpace(req.Name),
		Username:  req.Username,
		Balance:   decimal.Zero,
		Role:      model.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if referrer != nil {
		user.ReferredBy = referrer.ID
	}

	var err error
	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		user.ReferralCode = newReferralCode()
		err = s.uow.Run(ctx, user.ID, func(ctx context.Context, r Repos) error {
			if err := r.Users.Create(ctx, user); err != nil {
				return err
			}
			if referrer == nil {
				return nil
			}
			return r.Referrals.Create(ctx, model.Referral{
				ID:                uuid.New().String(),
				ReferrerID:        referrer.ID,
				ReferredUserID:    user.ID,
				Status:            model.ReferralPending,
				EarningsGenerated: decimal.Zero,
				CreatedAt:         now,
			})
		})
		if err == nil || !errors.Is(err, apperrors.ErrDuplicateEntry) || !strings.Contains(err.Error(), "referral_code") {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("user registered", "user_id", user.ID, "referred_by", user.ReferredBy)
	return user, nil
}

// IssueToken returns a session token for an active user.
func (s *UserService) IssueToken(ctx context.Context, userID string) (Session, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, apperrors.ErrUserInactive
	}

	token, err := s.tokens.Issue(auth.Claims{UserID: user.ID, Role: user.Role})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToIssueToken, err)
	}
	return Session{User: user, Token: token, ExpiresIn: int64(s.tokens.TTL().Seconds())}, nil
}

// Authenticate verifies a token and checks that its user is still active.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Claims{}, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return auth.Claims{}, apperrors.ErrInvalidToken
	}
	if err != nil {
		return auth.Claims{}, err
	}
	if !user.IsActive {
		return auth.Claims{}, apperrors.ErrUserInactive
	}
	claims.Role = user.Role
	return claims, nil
}
