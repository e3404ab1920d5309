package validation

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/tikalinvest/brokerage-ledger/internal/api/request"
)

var (
	usernamePattern     = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,150}$`)
	referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// ValidateRegisterUser validates a registration request from the identity provider.
//
// Required fields:
//   - email: a single RFC 5322 address
//   - name: 1 to 150 characters
//   - username: 3 to 150 letters, digits, '_', '.' or '-'
//
// Optional fields:
//   - referralCode: 8 upper-case letters or digits
func ValidateRegisterUser(req request.RegisterUserRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Email) == "" {
		errors["email"] = "email is required"
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		errors["email"] = "invalid email address"
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errors["name"] = "name is required"
	} else if len(name) > 150 {
		errors["name"] = "name must be at most 150 characters"
	}

	if !usernamePattern.MatchString(req.Username) {
		errors["username"] = "username must be 3-150 letters, digits, '_', '.' or '-'"
	}

	if req.ReferralCode != "" && !referralCodePattern.MatchString(strings.ToUpper(req.ReferralCode)) {
		errors["referralCode"] = "referralCode must be 8 letters or digits"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
