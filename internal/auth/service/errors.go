// Package service implements the authentication and session-lifecycle core:
// credential issuance, login/register/refresh/logout, and rotation.
//
// Sentinel errors are wrapped with fmt.Errorf("%w") and mapped to HTTP status
// codes in the handler layer with errors.Is. Guard-internal rejection reasons
// never reach clients; distinguishing e.g. a missing session from a token
// mismatch would hand an attacker useful signal.
package service

import "errors"

var (
	// ErrInvalidInput indicates a malformed registration payload.
	// HTTP status: 400 Bad Request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken indicates the email is already registered.
	// HTTP status: 409 Conflict.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates a failed login. Deliberately covers both
	// unknown email and wrong password to avoid account enumeration.
	// HTTP status: 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken indicates the refresh token cannot be redeemed:
	// its session row is gone (rotated, revoked, or expired) or it no longer
	// belongs to the presenting user.
	// HTTP status: 401 Unauthorized.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// ErrUserNotFound indicates the token's subject no longer exists.
	// HTTP status: 401 Unauthorized (never distinguished for the client).
	ErrUserNotFound = errors.New("user not found")
)
