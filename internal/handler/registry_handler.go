package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medverify-api/internal/service"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
	"github.com/noah-isme/medverify-api/pkg/response"
)

// RegistryHandler wires admin registry endpoints to the registry service.
type RegistryHandler struct {
	service *service.RegistryService
}

// NewRegistryHandler creates a new handler.
func NewRegistryHandler(svc *service.RegistryService) *RegistryHandler {
	return &RegistryHandler{service: svc}
}

// CreateDrug registers a new drug.
func (h *RegistryHandler) CreateDrug(c *gin.Context) {
	var req service.CreateDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid drug payload"))
		return
	}

	drug, err := h.service.CreateDrug(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, drug)
}

// CreateBatch registers a new batch under an existing drug.
func (h *RegistryHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	batch, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// ListDrugs returns registry entries, optionally matching a search term.
func (h *RegistryHandler) ListDrugs(c *gin.Context) {
	drugs, err := h.service.ListDrugs(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drugs)
}
