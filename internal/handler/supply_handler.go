package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/service"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
	"github.com/medtrack/medtrack-api/pkg/response"
)

// SupplyHandler wires HTTP endpoints to the supply ledger.
type SupplyHandler struct {
	service *service.SupplyService
	metrics *service.MetricsService
}

// NewSupplyHandler creates a new handler.
func NewSupplyHandler(svc *service.SupplyService, metrics *service.MetricsService) *SupplyHandler {
	return &SupplyHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Register supply lot
// @Tags Supplies
// @Accept json
// @Produce json
// @Param payload body dto.CreateSupplyRequest true "Lot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /supplies [post]
func (h *SupplyHandler) Create(c *gin.Context) {
	var req dto.CreateSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid supply payload"))
		return
	}

	lot, err := h.service.CreateLot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, lot)
}

// List godoc
// @Summary List supply lots
// @Tags Supplies
// @Produce json
// @Param name query string false "Filter by supply name"
// @Param category query string false "Filter by category"
// @Param enabled query bool false "Filter by enabled flag"
// @Param below_stock query bool false "Only lots at or below minimum"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /supplies [get]
func (h *SupplyHandler) List(c *gin.Context) {
	filter := models.SupplyFilter{
		Name:     c.Query("name"),
		Category: c.Query("category"),
	}
	if raw := c.Query("enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enabled filter"))
			return
		}
		filter.Enabled = &enabled
	}
	if raw := c.Query("below_stock"); raw != "" {
		filter.BelowStock, _ = strconv.ParseBool(raw)
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	lots, total, err := h.service.ListLots(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lots, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// SetEnabled godoc
// @Summary Enable or disable supply lot
// @Tags Supplies
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param payload body object true "Enabled flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /supplies/{id}/enabled [put]
func (h *SupplyHandler) SetEnabled(c *gin.Context) {
	var payload struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "enabled flag required"))
		return
	}

	if err := h.service.SetLotEnabled(c.Request.Context(), c.Param("id"), *payload.Enabled); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// TotalAvailable godoc
// @Summary Total available stock
// @Description Sum of display quantity across enabled lots of a supply name
// @Tags Supplies
// @Produce json
// @Param name query string true "Supply name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /supplies/total [get]
func (h *SupplyHandler) TotalAvailable(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "supply name is required"))
		return
	}

	total, err := h.service.TotalAvailable(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"name": name, "total": total}, nil)
}

// Consume godoc
// @Summary Consume supply stock
// @Description Deplete stock across lots, soonest expiration first
// @Tags Supplies
// @Accept json
// @Produce json
// @Param payload body dto.ConsumeSupplyRequest true "Consumption payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /supplies/consume [post]
func (h *SupplyHandler) Consume(c *gin.Context) {
	var req dto.ConsumeSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid consumption payload"))
		return
	}

	result, err := h.service.Consume(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSupplyConsumption()

	response.JSON(c, http.StatusOK, result, nil)
}
