package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the hex-encoded SHA-256 of a refresh token string.
// Session rows store this hash instead of the raw token, so a database leak
// does not expose redeemable credentials.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual compares the provided raw token against a stored hash
// in constant time. Returns true only on an exact match; this is what catches
// a signature-valid token that no longer matches its session row (e.g. replay
// of a rotated-out refresh token).
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
