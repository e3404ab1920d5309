package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/service"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

// UserHandler handles account registration and session tokens.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me returns the authenticated user's profile.
//
// Endpoint: GET /api/me
// Response: 200 OK with model.User
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveUser)
		return
	}
	response.RespondJSON(w, http.StatusOK, user)
}

// Register creates an account and returns it with a first session token.
//
// Endpoint: POST /api/internal/user
// Request Body: request.RegisterUserRequest
// Response: 201 Created with service.Session
// Error: 404 Not Found for an unknown referral code, 409 Conflict for a taken email or username
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RegisterUserRequest](r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	if err := validation.ValidateRegisterUser(req); err != nil {
		respondValidation(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateUser)
		return
	}

	session, err := h.userService.IssueToken(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToIssueToken)
		return
	}
	response.RespondJSON(w, http.StatusCreated, session)
}

// IssueToken issues a new session token for an existing user.
//
// Endpoint: POST /api/internal/user/{uuid}/token
// Response: 200 OK with service.Session
// Error: 403 Forbidden for a disabled account
func (h *UserHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	session, err := h.userService.IssueToken(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToIssueToken)
		return
	}
	response.RespondJSON(w, http.StatusOK, session)
}
