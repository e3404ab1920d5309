package validation

import (
	"fmt"
	"strings"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
)

// ValidTradeType contains the transaction types a user can submit directly.
var ValidTradeType = map[string]bool{
	"buy": true, "sell": true,
}

// ValidateCreateTrade validates a trade request.
//
// Required fields:
//   - symbol: 1 to 10 characters
//   - type: buy or sell
//   - shares: must be positive
//   - pricePerShare: must be positive if provided
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTrade(req request.CreateTradeRequest) error {
	errors := make(map[string]string)

	if msg := symbolError(req.Symbol); msg != "" {
		errors["symbol"] = msg
	}

	if strings.TrimSpace(req.Type) == "" {
		errors["type"] = "type is required"
	} else if !ValidTradeType[strings.ToLower(req.Type)] {
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if !req.Shares.IsPositive() {
		errors["shares"] = "shares must be positive"
	}

	if req.PricePerShare != nil && !req.PricePerShare.IsPositive() {
		errors["pricePerShare"] = "pricePerShare must be positive"
	}

	if len(req.Name) > 100 {
		errors["name"] = "name must be at most 100 characters"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
