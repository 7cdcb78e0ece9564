package security

import "time"

// Fixed secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-fedcba9876543210"
)

// TestTokenConfig returns a TokenConfig suitable for tests; now may be nil.
func TestTokenConfig(now func() time.Time) TokenConfig {
	return TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "videotube-auth",
		Audience:      "videotube-api",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
		Now:           now,
	}
}

// NewTestTokenIssuer returns a TokenIssuer with fixed test secrets. For use in tests only.
func NewTestTokenIssuer() (*TokenIssuer, error) {
	return NewTokenIssuer(TestTokenConfig(nil))
}
