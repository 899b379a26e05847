package repository

import (
	"context"
	"errors"

	"storefront-auth/internal/session/domain"
)

// ErrFamilyNotFound is returned by Rotate when no session row holds the old
// family id. This is what makes rotation exactly-once: a second redemption of
// the same refresh token loses the race for the row and fails here.
var ErrFamilyNotFound = errors.New("session family not found")

// Repository defines persistence for sessions.
//
// Rows are never mutated after creation; rotation is delete-plus-create so a
// stolen, already-rotated refresh token can never succeed twice. Rotate must
// perform that delete and create as a single atomic unit.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByFamilyID(ctx context.Context, familyID string) (*domain.Session, error)
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// ListAll returns every session, newest first. Admin use only.
	ListAll(ctx context.Context) ([]*domain.Session, error)
	// DeleteByID and DeleteByFamilyID are idempotent; callers must not assume
	// success implies prior existence.
	DeleteByID(ctx context.Context, id string) error
	DeleteByFamilyID(ctx context.Context, familyID string) error
	// DeleteAllForUser removes the user's sessions, optionally preserving the
	// one identified by excludeFamilyID (empty = remove all). Returns the
	// number of rows removed.
	DeleteAllForUser(ctx context.Context, userID, excludeFamilyID string) (int64, error)
	// DeleteExpired removes the user's sessions past their expiry.
	DeleteExpired(ctx context.Context, userID string) (int64, error)
	// DeleteAll removes every session. Admin use only.
	DeleteAll(ctx context.Context) (int64, error)
	// Rotate atomically replaces the session holding oldFamilyID with next.
	// Returns ErrFamilyNotFound when the old row is gone (already rotated,
	// revoked, or never existed).
	Rotate(ctx context.Context, oldFamilyID string, next *domain.Session) error
}
