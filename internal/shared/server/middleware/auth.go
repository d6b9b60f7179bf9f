package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string, want auth.TokenType) (*auth.Claims, error)
}

// Authenticate requires a valid access token and stores the principal in context.
// Every failure mode answers with the same 401 body.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
			return
		}

		claims, err := verifier.Verify(token, auth.TokenAccess)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
			return
		}

		c.Set(userIDKey, userID)
		c.Set(userRoleKey, claims.Role)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// UserIDFromContext fetches the user ID set by Authenticate.
func UserIDFromContext(c *gin.Context) int64 {
	if c == nil {
		return 0
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(int64); ok {
		return id
	}
	return 0
}

// UserEmailFromContext fetches the user email set by Authenticate.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserRoleFromContext fetches the user role set by Authenticate.
func UserRoleFromContext(c *gin.Context) auth.Role {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(auth.Role); ok {
		return role
	}
	return ""
}
