package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type badgeService interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Badge, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Badge, error)
	Create(ctx context.Context, req dto.CreateBadgeRequest) (*models.Badge, error)
	Update(ctx context.Context, id string, req dto.UpdateBadgeRequest) (*models.Badge, error)
	Delete(ctx context.Context, id string) error
}

// BadgeHandler serves admin badge endpoints.
type BadgeHandler struct {
	service badgeService
}

// NewBadgeHandler constructs a BadgeHandler.
func NewBadgeHandler(service badgeService) *BadgeHandler {
	return &BadgeHandler{service: service}
}

// List godoc
// @Summary List badges
// @Tags Badges
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /badges [get]
func (h *BadgeHandler) List(c *gin.Context) {
	badges, pagination, err := h.service.List(c.Request.Context(), listQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, pagination)
}

// Get godoc
// @Summary Get badge
// @Tags Badges
// @Param id path string true "Badge ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/{id} [get]
func (h *BadgeHandler) Get(c *gin.Context) {
	badge, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// Create godoc
// @Summary Create badge
// @Tags Badges
// @Accept json
// @Param payload body dto.CreateBadgeRequest true "Badge payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /badges [post]
func (h *BadgeHandler) Create(c *gin.Context) {
	var req dto.CreateBadgeRequest
	if !bindJSON(c, &req, "invalid badge payload") {
		return
	}
	badge, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, badge)
}

// Update godoc
// @Summary Update badge
// @Tags Badges
// @Accept json
// @Param id path string true "Badge ID"
// @Param payload body dto.UpdateBadgeRequest true "Badge payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/{id} [put]
func (h *BadgeHandler) Update(c *gin.Context) {
	var req dto.UpdateBadgeRequest
	if !bindJSON(c, &req, "invalid badge payload") {
		return
	}
	badge, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// Delete godoc
// @Summary Delete badge and its sections, students and teaching data
// @Tags Badges
// @Param id path string true "Badge ID"
// @Success 204
// @Security BearerAuth
// @Router /badges/{id} [delete]
func (h *BadgeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
