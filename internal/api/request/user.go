package request

// RegisterUserRequest is sent by the identity-provider glue after a person signs up.
type RegisterUserRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	ReferralCode string `json:"referralCode,omitempty"`
}
