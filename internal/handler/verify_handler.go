package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/middleware"
	"github.com/noah-isme/medverify-api/internal/service"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
	"github.com/noah-isme/medverify-api/pkg/response"
)

// VerifyHandler wires HTTP endpoints to the verification service.
type VerifyHandler struct {
	service *service.VerificationService
}

// NewVerifyHandler creates a new handler.
func NewVerifyHandler(svc *service.VerificationService) *VerifyHandler {
	return &VerifyHandler{service: svc}
}

// Verify checks a registration number against the registry.
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req service.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Lookup resolves a registration number directly, 404 when unknown.
func (h *VerifyHandler) Lookup(c *gin.Context) {
	result, err := h.service.Lookup(c.Request.Context(), c.Param("registrationNumber"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ListMine returns the caller's verification history.
func (h *VerifyHandler) ListMine(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Authentication required"))
		return
	}

	verifications, err := h.service.ListMine(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verifications)
}

// ListRecent returns the newest verifications for the admin dashboard.
func (h *VerifyHandler) ListRecent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid limit"))
			return
		}
		limit = parsed
	}

	verifications, err := h.service.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verifications)
}
