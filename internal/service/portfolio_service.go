package service

import (
	"context"

	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

const dashboardRecentTransactions = 5

// PriceLookup resolves prices for a set of symbols without failing.
type PriceLookup interface {
	Lookup(ctx context.Context, symbols []string) map[string]ledger.PriceResult
}

// PortfolioService derives holdings and valuations from a user's transaction log.
// It only reads committed data and never takes the user's write lock.
type PortfolioService struct {
	uow             *UnitOfWork
	transactionRepo *repository.TransactionRepository
	prices          PriceLookup
	aggregator      ledger.Aggregator
}

// NewPortfolioService creates a new PortfolioService with the provided repository dependencies.
func NewPortfolioService(
	uow *UnitOfWork,
	transactionRepo *repository.TransactionRepository,
	prices PriceLookup,
	aggregator ledger.Aggregator,
) *PortfolioService {
	return &PortfolioService{
		uow:             uow,
		transactionRepo: transactionRepo,
		prices:          prices,
		aggregator:      aggregator,
	}
}

// HoldingsResponse lists open positions and realized results per symbol.
type HoldingsResponse struct {
	Holdings []ledger.Holding  `json:"holdings"`
	Realized []ledger.Realized `json:"realized"`
}

// Holdings returns the user's open positions, sorted by symbol and rounded for display.
func (s *PortfolioService) Holdings(ctx context.Context, userID string) (HoldingsResponse, error) {
	_, l, err := s.load(ctx, userID)
	if err != nil {
		return HoldingsResponse{}, err
	}

	resp := HoldingsResponse{
		Holdings: make([]ledger.Holding, 0, len(l.Holdings)),
		Realized: make([]ledger.Realized, 0, len(l.Realized)),
	}
	for _, h := range l.Sorted() {
		resp.Holdings = append(resp.Holdings, h.Rounded())
	}
	for _, symbol := range sortedKeys(l.Realized) {
		resp.Realized = append(resp.Realized, l.Realized[symbol].Rounded())
	}
	return resp, nil
}

// Valuation marks the user's holdings to market. Holdings whose price could not be
// resolved live are flagged stale; those with no price at all are excluded from values.
func (s *PortfolioService) Valuation(ctx context.Context, userID string) (ledger.Valuation, error) {
	v, err := s.value(ctx, userID)
	if err != nil {
		return ledger.Valuation{}, err
	}
	return v.Rounded(), nil
}

// Dashboard summarizes the account for the home screen.
func (s *PortfolioService) Dashboard(ctx context.Context, userID string) (model.Dashboard, error) {
	v, err := s.value(ctx, userID)
	if err != nil {
		return model.Dashboard{}, err
	}
	v = v.Rounded()

	recent, err := s.transactionRepo.List(ctx, userID, model.TransactionFilter{
		Status:      model.StatusCompleted,
		NewestFirst: true,
		Limit:       dashboardRecentTransactions,
	})
	if err != nil {
		return model.Dashboard{}, err
	}

	return model.Dashboard{
		Balance:            v.Cash,
		TotalInvested:      v.TotalInvested,
		TotalGains:         v.TotalProfitLoss,
		GainsPercentage:    v.GainPercent,
		PortfolioValue:     v.HoldingsValue,
		RealizedGainLoss:   v.RealizedGainLoss,
		Stale:              v.Stale,
		RecentTransactions: recent,
	}, nil
}

func (s *PortfolioService) value(ctx context.Context, userID string) (ledger.Valuation, error) {
	user, l, err := s.load(ctx, userID)
	if err != nil {
		return ledger.Valuation{}, err
	}

	prices := s.prices.Lookup(ctx, l.Symbols())
	v := l.Value(prices, user.Balance)

	if v.Stale {
		var excluded []string
		for _, h := range v.Holdings {
			if h.Excluded {
				excluded = append(excluded, h.Symbol)
			}
		}
		logging.FromContext(ctx).Warn("valuation uses stale prices", "user_id", userID, "excluded", excluded)
	}
	return v, nil
}

// load reads the balance and the completed trades from one snapshot, so a trade
// committing in between cannot be counted in both cash and holdings.
func (s *PortfolioService) load(ctx context.Context, userID string) (model.User, ledger.Ledger, error) {
	var user model.User
	var trades []model.Transaction
	err := s.uow.Read(ctx, func(ctx context.Context, r Repos) error {
		var err error
		if user, err = r.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		trades, err = r.Transactions.ListCompletedTrades(ctx, userID, "")
		return err
	})
	if err != nil {
		return model.User{}, ledger.Ledger{}, err
	}

	l := s.aggregator.Aggregate(trades)
	if len(l.Clamped) > 0 {
		logging.FromContext(ctx).Warn("stored sales exceed holdings", "user_id", userID, "symbols", l.Clamped)
	}
	return user, l, nil
}
