package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type holidayService interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Holiday, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Holiday, error)
	Create(ctx context.Context, req dto.HolidayRequest) (*models.Holiday, error)
	Update(ctx context.Context, id string, req dto.HolidayRequest) (*models.Holiday, error)
	Delete(ctx context.Context, id string) error
}

// HolidayHandler serves admin holiday endpoints.
type HolidayHandler struct {
	service holidayService
}

// NewHolidayHandler constructs a HolidayHandler.
func NewHolidayHandler(service holidayService) *HolidayHandler {
	return &HolidayHandler{service: service}
}

// List godoc
// @Summary List holidays
// @Tags Holidays
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	holidays, pagination, err := h.service.List(c.Request.Context(), listQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, pagination)
}

// Get godoc
// @Summary Get holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays/{id} [get]
func (h *HolidayHandler) Get(c *gin.Context) {
	holiday, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// Create godoc
// @Summary Create holiday
// @Tags Holidays
// @Param payload body dto.HolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req dto.HolidayRequest
	if !bindJSON(c, &req, "invalid holiday payload") {
		return
	}
	holiday, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// Update godoc
// @Summary Update holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Param payload body dto.HolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays/{id} [put]
func (h *HolidayHandler) Update(c *gin.Context) {
	var req dto.HolidayRequest
	if !bindJSON(c, &req, "invalid holiday payload") {
		return
	}
	holiday, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// Delete godoc
// @Summary Delete holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204
// @Security BearerAuth
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
