// Package handler exposes session inspection and revocation over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-auth/internal/server/middleware"
	"storefront-auth/internal/session/domain"
	"storefront-auth/internal/session/service"
)

// Handler groups the session endpoints. The per-user routes run behind the
// access guard; the admin routes additionally behind RequireRoles(ADMIN).
type Handler struct {
	sessions *service.Service
}

// NewHandler returns a session Handler backed by svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{sessions: svc}
}

// sessionResponse deliberately omits the refresh token hash; it never leaves
// the server.
type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		UserAgent: s.UserAgent,
		IP:        s.IP,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func toSessionList(list []*domain.Session) []sessionResponse {
	out := make([]sessionResponse, len(list))
	for i, s := range list {
		out[i] = toSessionResponse(s)
	}
	return out
}

// List handles GET /sessions: the caller's sessions, newest first.
func (h *Handler) List(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	list, err := h.sessions.ListForUser(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": toSessionList(list)})
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// Delete handles DELETE /sessions/:id: revoke one of the caller's sessions.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOthers handles DELETE /sessions: revoke every session except the one
// whose family id is given in ?keepFamilyId (typically the caller's current
// one). With no query, all of the caller's sessions go.
func (h *Handler) DeleteOthers(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	n, err := h.sessions.DeleteAllForUser(c.Request.Context(), id.UserID, c.Query("keepFamilyId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

// AdminList handles GET /admin/sessions. The ?userId query narrows to one
// user.
func (h *Handler) AdminList(c *gin.Context) {
	var (
		list []*domain.Session
		err  error
	)
	if userID := c.Query("userId"); userID != "" {
		list, err = h.sessions.AdminListByUser(c.Request.Context(), userID)
	} else {
		list, err = h.sessions.AdminListAll(c.Request.Context())
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": toSessionList(list)})
}

// AdminGet handles GET /admin/sessions/:id.
func (h *Handler) AdminGet(c *gin.Context) {
	sess, err := h.sessions.AdminGet(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// AdminDelete handles DELETE /admin/sessions/:id.
func (h *Handler) AdminDelete(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c.Request.Context())
	if err := h.sessions.AdminDelete(c.Request.Context(), id.UserID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdminDeleteAll handles DELETE /admin/sessions: global revocation.
func (h *Handler) AdminDeleteAll(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c.Request.Context())
	n, err := h.sessions.AdminDeleteAll(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	log := zerolog.Ctx(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		log.Error().Err(err).Msg("session handler: internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
