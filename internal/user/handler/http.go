// Package handler exposes the user profile endpoint.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-auth/internal/server/middleware"
	"storefront-auth/internal/user/repository"
)

// Handler serves the current-user endpoint. Runs behind the access guard.
type Handler struct {
	users repository.Repository
}

// NewHandler returns a user Handler backed by repo.
func NewHandler(repo repository.Repository) *Handler {
	return &Handler{users: repo}
}

// Me handles GET /users/me: the profile of the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("user handler: lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if user == nil {
		// Deleted between the guard's check and now.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"role":      string(user.Role),
		"createdAt": user.CreatedAt,
	})
}
