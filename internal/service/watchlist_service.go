package service

import (
	"context"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// WatchlistService manages the symbols a user follows.
type WatchlistService struct {
	watchlistRepo *repository.WatchlistRepository
	userRepo      *repository.UserRepository
}

// NewWatchlistService creates a new WatchlistService.
func NewWatchlistService(watchlistRepo *repository.WatchlistRepository, userRepo *repository.UserRepository) *WatchlistService {
	return &WatchlistService{watchlistRepo: watchlistRepo, userRepo: userRepo}
}

// ToggleResult reports the state of a symbol after a toggle.
type ToggleResult struct {
	Symbol  string `json:"symbol"`
	Watched bool   `json:"watched"`
}

// List returns the user's watchlist with last-known prices.
func (s *WatchlistService) List(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	return s.watchlistRepo.List(ctx, userID)
}

// Toggle adds symbol to the watchlist, or removes it if already present.
func (s *WatchlistService) Toggle(ctx context.Context, userID, symbol string) (ToggleResult, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return ToggleResult{}, err
	}
	watched, err := s.watchlistRepo.Toggle(ctx, userID, symbol, nowUTC())
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Symbol: repository.NormalizeSymbol(symbol), Watched: watched}, nil
}
