package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// WatchlistHandler handles the symbols a user follows.
type WatchlistHandler struct {
	watchlistService *service.WatchlistService
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(watchlistService *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

// Watchlist lists the caller's watched symbols with last-known prices.
//
// Endpoint: GET /api/watchlist
func (h *WatchlistHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.watchlistService.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveWatchlist)
		return
	}
	response.RespondJSON(w, http.StatusOK, entries)
}

// Toggle adds the symbol to the watchlist or removes it when already present.
//
// Endpoint: POST /api/watchlist/{symbol}
// Response: 200 OK with service.ToggleResult
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	result, err := h.watchlistService.Toggle(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "symbol"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateWatchlist)
		return
	}
	response.RespondJSON(w, http.StatusOK, result)
}
