// Package audit records security-relevant events (logins, logouts, token
// rotations, revocations). Recording is best-effort: a failed write is logged
// and never fails the request that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront-auth/internal/audit/domain"
	auditrepo "storefront-auth/internal/audit/repository"
)

// Actions recorded by the auth and session code paths.
const (
	ActionRegister     = "register"
	ActionLogin        = "login"
	ActionLoginFailure = "login_failure"
	ActionLogout       = "logout"
	ActionRefresh      = "refresh"
	// ActionRefreshReuse marks a refresh token presented after its family
	// was already rotated or revoked.
	ActionRefreshReuse  = "refresh_reuse"
	ActionSessionRevoke = "session_revoke"
)

// Logger writes a single audit event with explicit action/resource.
type Logger interface {
	Log(ctx context.Context, userID, action, resource, resourceID string)
}

// PersistentLogger implements Logger against the audit repository.
type PersistentLogger struct {
	repo auditrepo.Repository
	log  zerolog.Logger
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository, log zerolog.Logger) *PersistentLogger {
	return &PersistentLogger{repo: repo, log: log}
}

// Log writes one audit log entry. Best-effort: errors are logged and not
// returned.
func (l *PersistentLogger) Log(ctx context.Context, userID, action, resource, resourceID string) {
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("audit: failed to record event")
	}
}

// NopLogger discards all events. Used in tests and when audit persistence is
// disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, string, string, string, string) {}
