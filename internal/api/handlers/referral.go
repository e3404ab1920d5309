package handlers

import (
	"net/http"

	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
)

// ReferralHandler exposes the caller's referrals.
type ReferralHandler struct {
	referralService *service.ReferralService
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referralService *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// Referrals lists the users the caller referred.
//
// Endpoint: GET /api/referral
func (h *ReferralHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	refs, err := h.referralService.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveReferrals)
		return
	}
	response.RespondJSON(w, http.StatusOK, refs)
}

// Stats counts the caller's referrals by status and sums the bonuses earned.
//
// Endpoint: GET /api/referral/stats
func (h *ReferralHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.referralService.Stats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveReferrals)
		return
	}
	response.RespondJSON(w, http.StatusOK, stats)
}
