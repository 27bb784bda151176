package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/service"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
	"github.com/medtrack/medtrack-api/pkg/response"
)

// MedicationRequestHandler wires HTTP endpoints to the request lifecycle.
type MedicationRequestHandler struct {
	service *service.MedicationRequestService
}

// NewMedicationRequestHandler creates a new handler.
func NewMedicationRequestHandler(svc *service.MedicationRequestService) *MedicationRequestHandler {
	return &MedicationRequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit medication request
// @Description Create a request with items and the generated dose schedule
// @Tags Medication Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitMedicationRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests [post]
func (h *MedicationRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// Get godoc
// @Summary Get medication request
// @Tags Medication Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests/{id} [get]
func (h *MedicationRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List medication requests
// @Tags Medication Requests
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests [get]
func (h *MedicationRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.MedicationRequestFilter{
		StudentID: c.Query("student_id"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.RequestStatus(raw)
		filter.Status = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	requests, total, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Update godoc
// @Summary Update medication request
// @Description Rewrite a pending request owned by the caller
// @Tags Medication Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateMedicationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests/{id} [put]
func (h *MedicationRequestHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete medication request
// @Tags Medication Requests
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests/{id} [delete]
func (h *MedicationRequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Approve godoc
// @Summary Approve medication request
// @Tags Medication Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests/{id}/approve [post]
func (h *MedicationRequestHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject medication request
// @Tags Medication Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /medication-requests/{id}/reject [post]
func (h *MedicationRequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *MedicationRequestHandler) decide(c *gin.Context, action func(ctx context.Context, claims *models.JWTClaims, id string, req dto.DecisionRequest) (*models.MedicationRequest, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := action(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}
