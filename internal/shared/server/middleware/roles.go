package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/server/respond"
)

// RequireRoles admits principals whose role is in roles. It must run after
// Authenticate. An empty role set admits every authenticated principal.
func RequireRoles(roles ...auth.Role) gin.HandlerFunc {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if _, ok := allowed[UserRoleFromContext(c)]; !ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "Access denied", nil)
			return
		}
		c.Next()
	}
}
