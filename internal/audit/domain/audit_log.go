package domain

import "time"

// AuditLog is one recorded security-relevant event.
type AuditLog struct {
	ID string
	// UserID is empty for events with no resolved user (e.g. a login
	// failure on an unknown email).
	UserID   string
	Action   string
	Resource string
	// ResourceID identifies the affected row: a user id, a session family
	// id, or the attempted email for login failures.
	ResourceID string
	CreatedAt  time.Time
}
