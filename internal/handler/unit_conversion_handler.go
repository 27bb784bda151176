package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/service"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
	"github.com/medtrack/medtrack-api/pkg/response"
)

// UnitConversionHandler wires HTTP endpoints to unit conversion management.
type UnitConversionHandler struct {
	service *service.UnitConverter
}

// NewUnitConversionHandler creates a new handler.
func NewUnitConversionHandler(svc *service.UnitConverter) *UnitConversionHandler {
	return &UnitConversionHandler{service: svc}
}

// List godoc
// @Summary List unit conversions
// @Tags Unit Conversions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-conversions [get]
func (h *UnitConversionHandler) List(c *gin.Context) {
	conversions, err := h.service.ListConversions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conversions, nil)
}

// Upsert godoc
// @Summary Create or update unit conversion
// @Tags Unit Conversions
// @Accept json
// @Produce json
// @Param payload body dto.UpsertConversionRequest true "Conversion payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-conversions [put]
func (h *UnitConversionHandler) Upsert(c *gin.Context) {
	var req dto.UpsertConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversion payload"))
		return
	}

	conv, err := h.service.UpsertConversion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conv, nil)
}

// Delete godoc
// @Summary Delete unit conversion
// @Tags Unit Conversions
// @Param from query string true "Source unit"
// @Param to query string true "Target unit"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-conversions [delete]
func (h *UnitConversionHandler) Delete(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to units are required"))
		return
	}

	if err := h.service.DeleteConversion(c.Request.Context(), from, to); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Convert godoc
// @Summary Convert quantity between units
// @Tags Unit Conversions
// @Accept json
// @Produce json
// @Param payload body dto.ConvertQuery true "Conversion query"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-conversions/convert [post]
func (h *UnitConversionHandler) Convert(c *gin.Context) {
	var req dto.ConvertQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversion query"))
		return
	}

	quantity, err := h.service.Convert(c.Request.Context(), req.Quantity, req.FromUnit, req.ToUnit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.ConvertResult{Quantity: quantity, Unit: req.ToUnit}, nil)
}
