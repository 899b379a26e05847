// Package middleware holds the Gin middleware for the HTTP server: the
// authentication guards, role checks, request logging, metrics, and login
// rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-auth/internal/security"
	sessiondomain "storefront-auth/internal/session/domain"
	userdomain "storefront-auth/internal/user/domain"
)

const bearerPrefix = "bearer "

// unauthorizedBody is the single response body for every guard rejection.
// The concrete reason is logged server-side only; clients never learn which
// check failed.
var unauthorizedBody = gin.H{"error": "unauthorized"}

// UserGetter resolves the token subject to a live user row.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionStore is what the refresh guard needs from the session repository.
type SessionStore interface {
	GetByFamilyID(ctx context.Context, familyID string) (*sessiondomain.Session, error)
	DeleteExpired(ctx context.Context, userID string) (int64, error)
}

// AccessGuard verifies the Bearer access token and resolves its subject to a
// live user, rejecting tokens whose user has been deleted. On success the
// request context carries an Identity with the user's current role.
func AccessGuard(codec *security.TokenCodec, users UserGetter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			reject(c, log, "missing bearer token")
			return
		}
		claims, err := codec.VerifyAccess(token)
		if err != nil {
			reject(c, log, "access token verification failed")
			return
		}
		user, err := users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			log.Error().Err(err).Msg("access guard: user lookup failed")
			reject(c, log, "user lookup error")
			return
		}
		if user == nil {
			reject(c, log, "token subject no longer exists")
			return
		}
		setIdentity(c, Identity{
			UserID: user.ID,
			Email:  user.Email,
			Role:   string(user.Role),
		})
		c.Next()
	}
}

// RefreshGuard verifies the Bearer refresh token and its session row: the
// family must still exist, belong to the token's subject, be unexpired, and
// hold the hash of the exact token presented. Expired rows for the user are
// deleted on the way through, so stale sessions disappear the next time the
// user refreshes.
func RefreshGuard(codec *security.TokenCodec, sessions SessionStore, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			reject(c, log, "missing bearer token")
			return
		}
		claims, err := codec.VerifyRefresh(token)
		if err != nil {
			reject(c, log, "refresh token verification failed")
			return
		}
		if claims.FamilyID() == "" {
			reject(c, log, "refresh token missing family id")
			return
		}
		ctx := c.Request.Context()

		if _, err := sessions.DeleteExpired(ctx, claims.Subject); err != nil {
			// Cleanup is opportunistic; the guard still decides on live rows.
			log.Warn().Err(err).Msg("refresh guard: expired-session cleanup failed")
		}

		sess, err := sessions.GetByFamilyID(ctx, claims.FamilyID())
		if err != nil {
			log.Error().Err(err).Msg("refresh guard: session lookup failed")
			reject(c, log, "session lookup error")
			return
		}
		switch {
		case sess == nil:
			reject(c, log, "session revoked or rotated")
			return
		case sess.UserID != claims.Subject:
			reject(c, log, "session user mismatch")
			return
		case sess.Expired(time.Now().UTC()):
			reject(c, log, "session expired")
			return
		case !security.RefreshTokenHashEqual(token, sess.RefreshTokenHash):
			reject(c, log, "refresh token hash mismatch")
			return
		}
		setIdentity(c, Identity{
			UserID:   claims.Subject,
			Email:    claims.Email,
			FamilyID: claims.FamilyID(),
		})
		c.Next()
	}
}

func setIdentity(c *gin.Context, id Identity) {
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}

func reject(c *gin.Context, log zerolog.Logger, reason string) {
	log.Info().
		Str("path", c.FullPath()).
		Str("reason", reason).
		Msg("request rejected")
	c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(c *gin.Context) string {
	v := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
