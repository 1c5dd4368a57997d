package token

import (
	"fmt"
	"strings"
	"time"
)

// Scope names the provider identity a token was issued to. Each scope has its
// own current token.
type Scope string

const (
	ScopeReseller Scope = "reseller"
	ScopeMerchant Scope = "merchant"
)

// AuthToken is a bearer token issued by the provider.
// A newer token supersedes an older one; tokens are never mutated.
type AuthToken struct {
	Value     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New builds a token issued at now and valid for the given window.
func New(value string, now time.Time, validity time.Duration) (*AuthToken, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("token value is empty")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("token validity must be positive: %s", validity)
	}
	return &AuthToken{
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(validity),
	}, nil
}

// ValidAt reports whether the token may still be used at t.
// Expiry is exclusive: a token is dead at the instant ExpiresAt is reached.
func (t *AuthToken) ValidAt(at time.Time) bool {
	return t != nil && t.Value != "" && t.ExpiresAt.After(at)
}
