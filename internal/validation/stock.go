package validation

import (
	"regexp"
	"strings"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=]{1,10}$`)

// ValidateSymbol checks a ticker from a URL parameter.
func ValidateSymbol(symbol string) error {
	if msg := symbolError(symbol); msg != "" {
		return &Error{Fields: map[string]string{"symbol": msg}}
	}
	return nil
}

// ValidateUpsertStock validates a catalog entry.
func ValidateUpsertStock(req request.UpsertStockRequest) error {
	errors := make(map[string]string)

	if msg := symbolError(req.Symbol); msg != "" {
		errors["symbol"] = msg
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errors["name"] = "name is required"
	} else if len(name) > 100 {
		errors["name"] = "name must be at most 100 characters"
	}

	if len(req.Category) > 50 {
		errors["category"] = "category must be at most 50 characters"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateRefreshPrices validates the symbols of a manual refresh.
func ValidateRefreshPrices(req request.RefreshPricesRequest) error {
	errors := make(map[string]string)
	for _, s := range req.Symbols {
		if msg := symbolError(s); msg != "" {
			errors["symbols"] = msg + ": " + s
			break
		}
	}
	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func symbolError(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "symbol is required"
	}
	if !symbolPattern.MatchString(symbol) {
		return "symbol must be 1-10 characters"
	}
	return ""
}
