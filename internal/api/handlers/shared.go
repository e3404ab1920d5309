// Package handlers adapts HTTP requests to service calls.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tikalinvest/brokerage-ledger/internal/api/response"
	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T, rejecting unknown fields and trailing data.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, fmt.Errorf("request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if dec.More() {
		return req, fmt.Errorf("request body must contain a single JSON object")
	}
	return req, nil
}

// errorStatus maps a service error to its HTTP status. Unknown errors are 500.
func errorStatus(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, apperrors.ErrNonPositiveAmount),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrSelfReferral):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrStockNotFound),
		errors.Is(err, apperrors.ErrReferralCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInsufficientBalance),
		errors.Is(err, apperrors.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrStockNotActive),
		errors.Is(err, apperrors.ErrDuplicateEntry),
		errors.Is(err, apperrors.ErrInvalidStatusTransition),
		errors.Is(err, apperrors.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status errorStatus picks. Client errors use
// the error text as message; server errors use fallback and are logged.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error(fallback.Error(), "error", err)
		response.RespondError(w, status, fallback.Error(), err.Error())
		return
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, status, "validation failed", verr.Fields)
		return
	}
	response.RespondError(w, status, rootMessage(err), err.Error())
}

// rootMessage returns the text of the sentinel err wraps, so clients see a stable message.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		apperrors.ErrNonPositiveAmount,
		apperrors.ErrInvalidDateRange,
		apperrors.ErrSelfReferral,
		apperrors.ErrUserNotFound,
		apperrors.ErrTransactionNotFound,
		apperrors.ErrStockNotFound,
		apperrors.ErrReferralCodeNotFound,
		apperrors.ErrInsufficientBalance,
		apperrors.ErrInsufficientShares,
		apperrors.ErrStockNotActive,
		apperrors.ErrDuplicateEntry,
		apperrors.ErrInvalidStatusTransition,
		apperrors.ErrConcurrentUpdate,
		apperrors.ErrPriceUnavailable,
		apperrors.ErrUserInactive,
		apperrors.ErrInvalidToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// respondValidation answers 400 for a request that failed parsing or validation.
func respondValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
}
