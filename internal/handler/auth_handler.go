package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/middleware"
	"github.com/noah-isme/medverify-api/internal/service"
	"github.com/noah-isme/medverify-api/pkg/config"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
	"github.com/noah-isme/medverify-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service. Sessions ride in an
// HttpOnly cookie rather than an Authorization header.
type AuthHandler struct {
	service *service.AuthService
	cookie  config.SessionConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookie config.SessionConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

// Register creates an account and logs the new user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, token)
	response.Created(c, user)
}

// Login authenticates an existing account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, token)
	response.JSON(c, http.StatusOK, user)
}

// Logout revokes the current session and clears the cookie. It succeeds even
// without a live session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.CookieName); err == nil && token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			response.Error(c, err)
			return
		}
	}

	c.SetCookie(h.cookie.CookieName, "", -1, "/", "", h.cookie.Secure, true)
	response.NoContent(c)
}

// CurrentUser returns the account behind the session cookie.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Authentication required"))
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(h.cookie.CookieName, token, int(h.service.SessionTTL().Seconds()), "/", "", h.cookie.Secure, true)
}
