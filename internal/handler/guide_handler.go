package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/service"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
	"github.com/noah-isme/medverify-api/pkg/response"
)

// GuideHandler serves downloadable consumer safety material.
type GuideHandler struct {
	service *service.GuideService
}

// NewGuideHandler creates a new handler.
func NewGuideHandler(svc *service.GuideService) *GuideHandler {
	return &GuideHandler{service: svc}
}

// SafetyGuidelines streams the drug safety guidelines PDF.
func (h *GuideHandler) SafetyGuidelines(c *gin.Context) {
	pdf, err := h.service.SafetyGuidelines()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate safety guidelines"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="drug-safety-guidelines.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
