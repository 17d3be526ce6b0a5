package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, req dto.SectionRequest) (*models.Section, error)
	Update(ctx context.Context, id string, req dto.SectionRequest) (*models.Section, error)
	Delete(ctx context.Context, id string) error
}

// SectionHandler serves admin section endpoints.
type SectionHandler struct {
	service sectionService
}

// NewSectionHandler constructs a SectionHandler.
func NewSectionHandler(service sectionService) *SectionHandler {
	return &SectionHandler{service: service}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Param badgeId query string false "Badge ID"
// @Param semester query int false "Semester"
// @Param session query string false "Session, e.g. 2024-2028"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	filter := models.SectionFilter{
		BadgeID:   strings.TrimSpace(c.Query("badgeId")),
		Session:   strings.TrimSpace(c.Query("session")),
		ListQuery: listQueryFromContext(c),
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	sections, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Get godoc
// @Summary Get section
// @Tags Sections
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Param payload body dto.SectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req dto.SectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update section
// @Tags Sections
// @Param id path string true "Section ID"
// @Param payload body dto.SectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req dto.SectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Delete godoc
// @Summary Delete section and everything taught to it
// @Tags Sections
// @Param id path string true "Section ID"
// @Success 204
// @Security BearerAuth
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
