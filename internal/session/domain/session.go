package domain

import "time"

// Session is one active refresh credential. A row exists if and only if its
// refresh token is currently redeemable; deleting the row is the sole
// revocation mechanism.
type Session struct {
	ID     string
	UserID string
	// FamilyID is unique per issuance, embedded in the refresh token as its
	// jti, and is the lookup key for rotation and revocation.
	FamilyID string
	// RefreshTokenHash is the SHA-256 hex of the exact refresh token string
	// issued for this session. Compared in constant time against inbound
	// bearer tokens to catch substitution and replay of rotated-out tokens.
	RefreshTokenHash string
	// UserAgent and IP are advisory provenance only, never used for
	// authorization decisions.
	UserAgent string
	IP        string
	// ExpiresAt is authoritative over the token's embedded expiry claim for
	// revocation purposes.
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
