package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/service"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
	"github.com/noah-isme/medverify-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "currentSession"

// RequireUser protects routes by requiring a live session cookie.
func RequireUser(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := resolveSession(c, authService, cookieName)
		if session == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Authentication required"))
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// RequireAdmin protects admin routes. Any caller without an admin session is
// rejected as forbidden, whether or not they are logged in at all.
func RequireAdmin(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := resolveSession(c, authService, cookieName)
		if session == nil || session.Role != models.RoleAdmin {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Admin access required"))
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// OptionalUser attaches the session when present but never blocks.
func OptionalUser(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session := resolveSession(c, authService, cookieName); session != nil {
			c.Set(ContextSessionKey, session)
		}
		c.Next()
	}
}

// SessionFromContext returns the resolved session, or nil for anonymous
// callers.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}

func resolveSession(c *gin.Context, authService *service.AuthService, cookieName string) *models.Session {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return nil
	}
	session, err := authService.ValidateSession(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	return session
}
