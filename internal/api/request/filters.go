package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 500
)

var validTransactionTypes = map[model.TransactionType]bool{
	model.TransactionBuy:      true,
	model.TransactionSell:     true,
	model.TransactionDeposit:  true,
	model.TransactionWithdraw: true,
}

var validTransactionStatuses = map[model.TransactionStatus]bool{
	model.StatusPending:   true,
	model.StatusCompleted: true,
	model.StatusFailed:    true,
	model.StatusCancelled: true,
}

// ParseTransactionFilters extracts and validates transaction list filters from query parameters.
//
// Validation rules:
//   - type: comma-separated list of buy, sell, deposit, withdraw
//   - status: one of pending, completed, failed, cancelled
//   - start_date/end_date: YYYY-MM-DD or RFC3339; a date-only end_date covers the whole day
//   - limit: between 1 and 500 (defaults to 100)
//
// Listings are always newest first.
//
//nolint:gocyclo // Sequential parameter checks
func ParseTransactionFilters(
	typeParam, symbolParam, statusParam, startDateParam, endDateParam, limitParam string,
) (*model.TransactionFilter, error) {
	filter := &model.TransactionFilter{
		Symbol:      strings.ToUpper(strings.TrimSpace(symbolParam)),
		NewestFirst: true,
		Limit:       defaultTransactionLimit,
	}

	if typeParam != "" {
		for _, raw := range strings.Split(typeParam, ",") {
			txType := model.TransactionType(strings.TrimSpace(strings.ToLower(raw)))
			if !validTransactionTypes[txType] {
				return nil, fmt.Errorf("invalid type: %s", raw)
			}
			filter.Types = append(filter.Types, txType)
		}
	}

	if statusParam != "" {
		status := model.TransactionStatus(strings.TrimSpace(strings.ToLower(statusParam)))
		if !validTransactionStatuses[status] {
			return nil, fmt.Errorf("invalid status: %s", statusParam)
		}
		filter.Status = status
	}

	start, end, err := ParseDateRange(startDateParam, endDateParam)
	if err != nil {
		return nil, err
	}
	filter.StartDate = start
	filter.EndDate = end

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > maxTransactionLimit {
			return nil, fmt.Errorf("invalid limit: must be between 1 and %d", maxTransactionLimit)
		}
		filter.Limit = limit
	}

	return filter, nil
}

// ParseDateRange parses optional start_date and end_date parameters.
// Zero times are returned for missing values. A date-only end is moved to the end of that day.
func ParseDateRange(startDateParam, endDateParam string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startDateParam != "" {
		start, _, err = parseFilterTime(startDateParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
	}

	if endDateParam != "" {
		var dateOnly bool
		end, dateOnly, err = parseFilterTime(endDateParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}

	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date must be after start_date")
	}

	return start, end, nil
}

// parseFilterTime parses date strings for filter parameters.
// Accepts YYYY-MM-DD, RFC3339, and RFC3339 with milliseconds formats.
func parseFilterTime(str string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
