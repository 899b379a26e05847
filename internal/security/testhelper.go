package security

import "time"

// Fixed symmetric secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// NewTestTokenCodec returns a TokenCodec with fixed test secrets and short TTLs.
// For unit tests only.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		15*time.Minute,
		24*time.Hour,
	)
}
