package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHistoryPeriod = "1M"
	maxHistoryDays       = 3650
)

// historyPeriods maps a chart period to the number of days it covers.
var historyPeriods = map[string]int{
	"1D":  1,
	"1W":  7,
	"1M":  30,
	"3M":  90,
	"6M":  180,
	"1Y":  365,
	"ALL": maxHistoryDays,
}

// UpsertStockRequest creates or updates a catalog entry.
type UpsertStockRequest struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// RefreshPricesRequest lists symbols to refresh. An empty list refreshes every tracked symbol.
type RefreshPricesRequest struct {
	Symbols []string `json:"symbols"`
}

// ParseHistoryPeriod turns the period and days query parameters of the price history
// endpoint into a label and a lower time bound relative to now.
//
// Validation rules:
//   - period: one of 1D, 1W, 1M, 3M, 6M, 1Y, ALL (defaults to 1M)
//   - days: between 1 and 3650; overrides period, labelled "<days>D"
func ParseHistoryPeriod(periodParam, daysParam string, now time.Time) (string, time.Time, error) {
	if daysParam != "" {
		days, err := strconv.Atoi(daysParam)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("invalid days: must be a number")
		}
		if days < 1 || days > maxHistoryDays {
			return "", time.Time{}, fmt.Errorf("invalid days: must be between 1 and %d", maxHistoryDays)
		}
		return fmt.Sprintf("%dD", days), now.AddDate(0, 0, -days), nil
	}

	period := strings.ToUpper(strings.TrimSpace(periodParam))
	if period == "" {
		period = defaultHistoryPeriod
	}
	days, ok := historyPeriods[period]
	if !ok {
		return "", time.Time{}, fmt.Errorf("invalid period: %s", periodParam)
	}
	return period, now.AddDate(0, 0, -days), nil
}
