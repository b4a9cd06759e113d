package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/middleware"
	"github.com/noah-isme/medverify-api/internal/service"
)

// requestMeta builds the audit metadata for the current request. The user ID
// is nil for anonymous callers.
func requestMeta(c *gin.Context) service.RequestMeta {
	meta := service.RequestMeta{IP: c.ClientIP()}
	if session := middleware.SessionFromContext(c); session != nil {
		userID := session.UserID
		meta.UserID = &userID
	}
	return meta
}
