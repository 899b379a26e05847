package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userdomain "storefront-auth/internal/user/domain"
)

// forbiddenBody is the single response body for authorization failures.
var forbiddenBody = gin.H{"error": "forbidden"}

// RequireRoles rejects callers whose role is not in the given set. With no
// roles listed, any authenticated caller passes. Role comparison is
// case-insensitive: both sides are normalized before matching. Must run after
// AccessGuard; a request with no identity is rejected outright.
func RequireRoles(roles ...userdomain.Role) gin.HandlerFunc {
	allowed := make(map[userdomain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[userdomain.NormalizeRole(string(r))] = true
	}
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if !allowed[userdomain.NormalizeRole(id.Role)] {
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}
		c.Next()
	}
}
