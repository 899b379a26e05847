package middleware

import "context"

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the caller resolved by a guard. Role is populated by the access
// guard; FamilyID by the refresh guard.
type Identity struct {
	UserID   string
	Email    string
	Role     string
	FamilyID string
}

// WithIdentity returns a context carrying the resolved identity. Handlers
// read it via IdentityFrom.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity from ctx and true if a guard set one;
// otherwise a zero Identity and false.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}
