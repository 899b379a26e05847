// Package service implements session lifecycle operations on top of the
// session repository: listing, inspection, and revocation. Deleting a
// session row is the sole revocation mechanism; there is no deny-list.
package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-auth/internal/audit"
	"storefront-auth/internal/session/domain"
	"storefront-auth/internal/session/repository"
)

var (
	// ErrSessionNotFound indicates no session row with the requested id.
	// HTTP status: 404 Not Found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotOwner indicates the session exists but belongs to another user.
	// HTTP status: 403 Forbidden.
	ErrNotOwner = errors.New("session belongs to another user")
)

// Service exposes session lifecycle operations. Per-user operations enforce
// ownership; the Admin* variants do not and must only be reachable behind an
// admin role check.
type Service struct {
	sessions repository.Repository
	auditor  audit.Logger
}

// NewService returns a session Service. auditor may be nil to disable audit
// logging.
func NewService(sessions repository.Repository, auditor audit.Logger) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{sessions: sessions, auditor: auditor}
}

// ListForUser returns the user's sessions, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	list, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// Get returns the session with id if it belongs to userID. Returns
// ErrSessionNotFound for a missing row and ErrNotOwner for someone else's.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != userID {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// Delete revokes the session with id after checking it belongs to userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.sessions.DeleteByID(ctx, sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.auditor.Log(ctx, userID, audit.ActionSessionRevoke, "session", sess.FamilyID)
	return nil
}

// DeleteAllForUser revokes every session the user holds except the one
// identified by keepFamilyID ("log out other devices"). Pass an empty
// keepFamilyID to revoke all of them. Returns the number revoked.
func (s *Service) DeleteAllForUser(ctx context.Context, userID, keepFamilyID string) (int64, error) {
	n, err := s.sessions.DeleteAllForUser(ctx, userID, keepFamilyID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	if n > 0 {
		s.auditor.Log(ctx, userID, audit.ActionSessionRevoke, "user", userID)
	}
	return n, nil
}

// DeleteExpired removes the user's expired session rows. Called opportunistically
// by the refresh guard so stale rows do not accumulate between refreshes.
func (s *Service) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	return s.sessions.DeleteExpired(ctx, userID)
}

// AdminListAll returns every session in the store.
func (s *Service) AdminListAll(ctx context.Context) ([]*domain.Session, error) {
	list, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// AdminListByUser returns any user's sessions, newest first.
func (s *Service) AdminListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.ListForUser(ctx, userID)
}

// AdminGet returns any session by id without an ownership check.
func (s *Service) AdminGet(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// AdminDelete revokes any session by id. adminID is recorded as the actor.
func (s *Service) AdminDelete(ctx context.Context, adminID, id string) error {
	sess, err := s.AdminGet(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.DeleteByID(ctx, sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.auditor.Log(ctx, adminID, audit.ActionSessionRevoke, "session", sess.FamilyID)
	return nil
}

// AdminDeleteAll revokes every session in the store, forcing all users to log
// in again. Returns the number revoked.
func (s *Service) AdminDeleteAll(ctx context.Context, adminID string) (int64, error) {
	n, err := s.sessions.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	s.auditor.Log(ctx, adminID, audit.ActionSessionRevoke, "all_sessions", "")
	return n, nil
}
