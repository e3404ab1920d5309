package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// PriceRefresher fetches fresh quotes for many symbols.
type PriceRefresher interface {
	PriceQuoter
	Refresh(ctx context.Context, symbols []string) model.PriceRefreshResult
}

// StockService manages the stock catalog and price refreshes.
type StockService struct {
	stockRepo       *repository.StockRepository
	priceRepo       *repository.PriceRepository
	transactionRepo *repository.TransactionRepository
	watchlistRepo   *repository.WatchlistRepository
	prices          PriceRefresher
}

// NewStockService creates a new StockService.
func NewStockService(
	stockRepo *repository.StockRepository,
	priceRepo *repository.PriceRepository,
	transactionRepo *repository.TransactionRepository,
	watchlistRepo *repository.WatchlistRepository,
	prices PriceRefresher,
) *StockService {
	return &StockService{
		stockRepo:       stockRepo,
		priceRepo:       priceRepo,
		transactionRepo: transactionRepo,
		watchlistRepo:   watchlistRepo,
		prices:          prices,
	}
}

// StockQuote is a catalog entry with its current price, if any could be resolved.
type StockQuote struct {
	model.Stock
	Price  *decimal.Decimal   `json:"price,omitempty"`
	AsOf   *time.Time         `json:"asOf,omitempty"`
	Source ledger.PriceSource `json:"source"`
}

// ListActive returns the tradable catalog with last-known prices, optionally limited to
// one category.
func (s *StockService) ListActive(ctx context.Context, category string) ([]model.StockWithPrice, error) {
	return s.stockRepo.ListWithPrices(ctx, true, category)
}

// Categories returns the catalog's categories.
func (s *StockService) Categories(ctx context.Context) ([]string, error) {
	return s.stockRepo.Categories(ctx)
}

// History returns the recorded quotes of a catalog stock since the given time.
// Returns ErrStockNotFound for symbols outside the catalog.
func (s *StockService) History(ctx context.Context, symbol string, since time.Time) (model.PriceHistory, error) {
	stock, err := s.stockRepo.Get(ctx, symbol)
	if err != nil {
		return model.PriceHistory{}, err
	}

	quotes, err := s.priceRepo.History(ctx, stock.Symbol, since)
	if err != nil {
		return model.PriceHistory{}, err
	}
	return model.PriceHistory{Symbol: stock.Symbol, Since: since, History: quotes}, nil
}

// Quote returns a catalog entry with a current price. A symbol without any price is
// still returned, with Source set to unavailable.
func (s *StockService) Quote(ctx context.Context, symbol string) (StockQuote, error) {
	stock, err := s.stockRepo.Get(ctx, symbol)
	if err != nil {
		return StockQuote{}, err
	}

	out := StockQuote{Stock: stock, Source: ledger.SourceUnavailable}
	q, source, err := s.prices.Quote(ctx, stock.Symbol)
	if errors.Is(err, apperrors.ErrPriceUnavailable) {
		return out, nil
	}
	if err != nil {
		return StockQuote{}, err
	}

	price := ledger.RoundMoney(q.Price)
	asOf := q.AsOf
	out.Price = &price
	out.AsOf = &asOf
	out.Source = source
	return out, nil
}

// Upsert creates or updates a catalog entry. New entries are active unless stated otherwise.
func (s *StockService) Upsert(ctx context.Context, req request.UpsertStockRequest) (model.Stock, error) {
	stock := model.Stock{
		Symbol:    repository.NormalizeSymbol(req.Symbol),
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		IsActive:  true,
		UpdatedAt: nowUTC(),
	}
	if req.IsActive != nil {
		stock.IsActive = *req.IsActive
	}

	if err := s.stockRepo.Upsert(ctx, stock); err != nil {
		return model.Stock{}, err
	}
	logging.FromContext(ctx).Info("stock saved", "symbol", stock.Symbol, "active", stock.IsActive)
	return stock, nil
}

// TrackedSymbols returns every symbol worth keeping a price for: anything traded,
// anything on a watchlist, and every active catalog entry.
func (s *StockService) TrackedSymbols(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}

	traded, err := s.transactionRepo.TradedSymbols(ctx)
	if err != nil {
		return nil, err
	}
	watched, err := s.watchlistRepo.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.stockRepo.ActiveSymbols(ctx)
	if err != nil {
		return nil, err
	}

	for _, list := range [][]string{traded, watched, active} {
		for _, symbol := range list {
			seen[symbol] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// RefreshPrices fetches fresh quotes for symbols, or for every tracked symbol when
// symbols is empty.
func (s *StockService) RefreshPrices(ctx context.Context, symbols []string) (model.PriceRefreshResult, error) {
	if len(symbols) == 0 {
		tracked, err := s.TrackedSymbols(ctx)
		if err != nil {
			return model.PriceRefreshResult{}, err
		}
		symbols = tracked
	}

	result := s.prices.Refresh(ctx, symbols)
	logging.FromContext(ctx).Info("prices refreshed",
		"requested", result.Requested,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result, nil
}
