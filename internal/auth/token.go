// Package auth issues and verifies user session tokens.
//
// Sign-in itself is handled by the external identity provider; once it has
// authenticated a person, the internal API exchanges the user id for a fernet token
// that the client sends as "Authorization: Bearer <token>".
package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
)

// Claims is the payload sealed in a token.
type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
}

// TokenIssuer signs and verifies fernet tokens.
type TokenIssuer struct {
	keys []*fernet.Key
	ttl  time.Duration
}

// NewTokenIssuer parses one or more base64 fernet keys. The first key signs new tokens;
// every key is accepted when verifying, which allows key rotation.
func NewTokenIssuer(ttl time.Duration, encodedKeys ...string) (*TokenIssuer, error) {
	if len(encodedKeys) == 0 || encodedKeys[0] == "" {
		return nil, fmt.Errorf("token key is required")
	}
	keys, err := fernet.DecodeKeys(encodedKeys...)
	if err != nil {
		return nil, fmt.Errorf("invalid token key: %w", err)
	}
	return &TokenIssuer{keys: keys, ttl: ttl}, nil
}

// GenerateKey returns a fresh base64 fernet key, for local setups and tests.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}

// TTL is how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue seals claims into a token.
func (i *TokenIssuer) Issue(claims Claims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	tok, err := fernet.EncryptAndSign(payload, i.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(tok), nil
}

// Verify opens a token. Expired, tampered or malformed tokens fail with ErrInvalidToken.
func (i *TokenIssuer) Verify(token string) (Claims, error) {
	payload := fernet.VerifyAndDecrypt([]byte(token), i.ttl, i.keys)
	if payload == nil {
		return Claims{}, apperrors.ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil || claims.UserID == "" {
		return Claims{}, apperrors.ErrInvalidToken
	}
	return claims, nil
}
