package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type timetableRuleService interface {
	List(ctx context.Context, filter models.TimetableRuleFilter) ([]models.TimetableRule, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TimetableRule, error)
	Create(ctx context.Context, req dto.TimetableRuleRequest) (*models.TimetableRule, error)
	Update(ctx context.Context, id string, req dto.TimetableRuleRequest) (*models.TimetableRule, error)
	Delete(ctx context.Context, id string) error
}

// TimetableRuleHandler serves recurring timetable rule endpoints.
type TimetableRuleHandler struct {
	service timetableRuleService
}

// NewTimetableRuleHandler constructs a TimetableRuleHandler.
func NewTimetableRuleHandler(service timetableRuleService) *TimetableRuleHandler {
	return &TimetableRuleHandler{service: service}
}

// List godoc
// @Summary List timetable rules
// @Tags Timetable Rules
// @Param teacherCourseId query string false "Teacher course ID"
// @Param teacherId query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable-rules [get]
func (h *TimetableRuleHandler) List(c *gin.Context) {
	filter := models.TimetableRuleFilter{
		TeacherCourseID: strings.TrimSpace(c.Query("teacherCourseId")),
		TeacherID:       strings.TrimSpace(c.Query("teacherId")),
		ListQuery:       listQueryFromContext(c),
	}
	rules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, pagination)
}

// Get godoc
// @Summary Get timetable rule
// @Tags Timetable Rules
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable-rules/{id} [get]
func (h *TimetableRuleHandler) Get(c *gin.Context) {
	rule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Create timetable rule
// @Tags Timetable Rules
// @Param payload body dto.TimetableRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable-rules [post]
func (h *TimetableRuleHandler) Create(c *gin.Context) {
	var req dto.TimetableRuleRequest
	if !bindJSON(c, &req, "invalid timetable rule payload") {
		return
	}
	rule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update timetable rule
// @Description Already generated lectures are left unchanged.
// @Tags Timetable Rules
// @Param id path string true "Rule ID"
// @Param payload body dto.TimetableRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable-rules/{id} [put]
func (h *TimetableRuleHandler) Update(c *gin.Context) {
	var req dto.TimetableRuleRequest
	if !bindJSON(c, &req, "invalid timetable rule payload") {
		return
	}
	rule, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete timetable rule and its lectures
// @Tags Timetable Rules
// @Param id path string true "Rule ID"
// @Success 204
// @Security BearerAuth
// @Router /timetable-rules/{id} [delete]
func (h *TimetableRuleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
