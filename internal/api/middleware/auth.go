package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/auth"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
)

// Authenticator turns a bearer token into the caller's claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Claims, error)
}

// RequireUser rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the caller's claims in the request context.
//
// Returns 401 for a missing, malformed or expired token and 403 for a disabled account.
func RequireUser(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Malformed authorization header")
				return
			}

			claims, err := a.Authenticate(r.Context(), strings.TrimSpace(token))
			switch {
			case errors.Is(err, apperrors.ErrUserInactive):
				response.RespondError(w, http.StatusForbidden, "forbidden", err.Error())
				return
			case errors.Is(err, apperrors.ErrInvalidToken):
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			case err != nil:
				logging.FromContext(r.Context()).Error("failed to authenticate request", "error", err)
				response.RespondError(w, http.StatusInternalServerError, "authentication failed", "")
				return
			}

			r = r.WithContext(auth.WithClaims(r.Context(), claims))
			setUser(w, r)
			next.ServeHTTP(w, r)
		})
	}
}

// APIKey guards internal routes with the X-API-Key header.
// An empty key means internal routes were not configured and every request fails with 500.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				response.RespondError(w, http.StatusInternalServerError, "unauthorized", "Authentication not loaded")
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
