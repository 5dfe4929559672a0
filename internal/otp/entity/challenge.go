package entity

import (
	"strings"
	"time"
)

// Challenge is one outstanding OTP for an (identifier, purpose) pair. Only the
// HMAC of the code is kept.
type Challenge struct {
	ID          string
	Identifier  string
	Purpose     Purpose
	CodeHash    string
	Verified    bool
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	// PurgeAt is when the record may be physically removed. It trails
	// ExpiresAt so an expired challenge can still be reported as expired.
	PurgeAt time.Time
}

// NormalizeIdentifier lowercases and trims an email or phone identifier.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsExpired is true from ExpiresAt on.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c *Challenge) IsExhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

func (c *Challenge) AttemptsRemaining() int {
	return max(c.MaxAttempts-c.Attempts, 0)
}

// CooldownLeft is how long a new code is refused for this pending challenge.
// Verified and exhausted challenges never hold back a new request.
func (c *Challenge) CooldownLeft(now time.Time, cooldown time.Duration) time.Duration {
	if c.Verified || c.IsExhausted() {
		return 0
	}

	return max(c.CreatedAt.Add(cooldown).Sub(now), 0)
}
