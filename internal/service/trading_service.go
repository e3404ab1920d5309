package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// PriceQuoter resolves one symbol for a trade.
type PriceQuoter interface {
	Quote(ctx context.Context, symbol string) (model.Quote, ledger.PriceSource, error)
}

// TradingService executes buy and sell orders against a user's cash and holdings.
type TradingService struct {
	uow         *UnitOfWork
	stockRepo   *repository.StockRepository
	prices      PriceQuoter
	aggregator  ledger.Aggregator
	maxQuoteAge time.Duration
}

// NewTradingService creates a new TradingService.
// maxQuoteAge bounds how old a last-known price may be when the vendor is unreachable.
func NewTradingService(
	uow *UnitOfWork,
	stockRepo *repository.StockRepository,
	prices PriceQuoter,
	aggregator ledger.Aggregator,
	maxQuoteAge time.Duration,
) *TradingService {
	return &TradingService{
		uow:         uow,
		stockRepo:   stockRepo,
		prices:      prices,
		aggregator:  aggregator,
		maxQuoteAge: maxQuoteAge,
	}
}

// Trade records a completed buy or sell for userID and moves cash accordingly.
//
// The price is resolved before the user's unit of work starts, so the per-user lock
// never waits on the market-data vendor. Inside the unit of work the balance and the
// user's holding of the symbol are re-read, the order is validated against them, and the
// transaction row and balance update are committed together.
//
// Returns:
//   - ErrStockNotFound / ErrStockNotActive: buying a symbol that is not tradable
//   - ErrPriceUnavailable: no price given and none could be resolved
//   - ErrInsufficientBalance: buy total exceeds cash
//   - ErrInsufficientShares: sell quantity exceeds the holding
func (s *TradingService) Trade(ctx context.Context, userID string, req request.CreateTradeRequest) (*model.Transaction, error) {
	symbol := repository.NormalizeSymbol(req.Symbol)
	txType := model.TransactionType(strings.ToLower(req.Type))
	if !txType.IsTrade() {
		return nil, fmt.Errorf("unsupported trade type %q", req.Type)
	}

	name, err := s.tradableName(ctx, symbol, txType, req.Name)
	if err != nil {
		return nil, err
	}

	price, err := s.resolvePrice(ctx, symbol, req.PricePerShare)
	if err != nil {
		return nil, err
	}

	total := ledger.RoundMoney(req.Shares.Mul(price))
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: trade total rounds to zero", apperrors.ErrNonPositiveAmount)
	}

	transaction := &model.Transaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		Symbol:        symbol,
		Name:          name,
		Type:          txType,
		Quantity:      req.Shares,
		UnitPrice:     price,
		Total:         total,
		Status:        model.StatusCompleted,
		ReferenceCode: newReferenceCode(RefPrefixTrade),
	}

	err = s.uow.Run(ctx, userID, func(ctx context.Context, r Repos) error {
		user, err := activeUser(ctx, r, userID)
		if err != nil {
			return err
		}

		if txType == model.TransactionSell {
			trades, err := r.Transactions.ListCompletedTrades(ctx, userID, symbol)
			if err != nil {
				return err
			}
			l := s.aggregator.Aggregate(trades)
			if len(l.Clamped) > 0 {
				logging.FromContext(ctx).Warn("stored sales exceed holdings", "user_id", userID, "symbols", l.Clamped)
			}
			if err := ledger.CheckSell(l, symbol, req.Shares); err != nil {
				return err
			}
		}

		next, err := ledger.ApplyCash(user.Balance, txType, total)
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

	logging.FromContext(ctx).Info("trade executed",
		"user_id", userID,
		"transaction_id", transaction.ID,
		"type", string(txType),
		"symbol", symbol,
		"shares", req.Shares.String(),
		"total", total.StringFixed(2),
	)
	return transaction, nil
}

// tradableName checks the catalog and returns the display name stored on the transaction.
// Buying requires an active catalog entry; selling is allowed for delisted symbols so
// users can always exit a position.
func (s *TradingService) tradableName(ctx context.Context, symbol string, txType model.TransactionType, requested string) (string, error) {
	stock, err := s.stockRepo.Get(ctx, symbol)
	switch {
	case err == nil:
		if txType == model.TransactionBuy && !stock.IsActive {
			return "", fmt.Errorf("%w: %s", apperrors.ErrStockNotActive, symbol)
		}
		return stock.Name, nil
	case errors.Is(err, apperrors.ErrStockNotFound):
		if txType == model.TransactionBuy {
			return "", fmt.Errorf("%w: %s", apperrors.ErrStockNotFound, symbol)
		}
		if strings.TrimSpace(requested) != "" {
			return strings.TrimSpace(requested), nil
		}
		return symbol, nil
	default:
		return "", err
	}
}

// resolvePrice uses the explicit price when given, otherwise a live quote or a
// last-known price no older than maxQuoteAge.
func (s *TradingService) resolvePrice(ctx context.Context, symbol string, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}

	q, source, err := s.prices.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if source == ledger.SourceCached && s.maxQuoteAge > 0 && time.Since(q.AsOf) > s.maxQuoteAge {
		return decimal.Zero, fmt.Errorf("%w: last price for %s is from %s", apperrors.ErrPriceUnavailable,
			symbol, q.AsOf.Format(time.RFC3339))
	}
	if !q.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceUnavailable, symbol)
	}
	return q.Price, nil
}
