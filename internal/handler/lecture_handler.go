package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type lectureGenerator interface {
	Generate(ctx context.Context, actorID string, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error)
	Preview(ctx context.Context, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error)
}

type lectureService interface {
	List(ctx context.Context, actor service.Actor, q dto.LectureQuery) ([]models.LectureDetail, *models.Pagination, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.LectureDetail, error)
	CreateSpecialSession(ctx context.Context, teacherID string, req dto.CreateSpecialSessionRequest) (*models.Lecture, error)
	Cancel(ctx context.Context, actor service.Actor, id string) (*models.LectureDetail, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

// LectureHandler serves lecture generation and lecture listing endpoints.
type LectureHandler struct {
	generator lectureGenerator
	lectures  lectureService
}

// NewLectureHandler constructs a LectureHandler.
func NewLectureHandler(generator lectureGenerator, lectures lectureService) *LectureHandler {
	return &LectureHandler{generator: generator, lectures: lectures}
}

// Generate godoc
// @Summary Generate lectures from timetable rules
// @Description Expands every overlapping rule over the inclusive date range. Holidays and existing lectures are skipped.
// @Tags Lectures
// @Accept json
// @Param payload body dto.GenerateLecturesRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /lectures/generate [post]
func (h *LectureHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GenerateLecturesRequest
	if !bindJSON(c, &req, "invalid generation payload") {
		return
	}
	summary, err := h.generator.Generate(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Preview godoc
// @Summary Preview lecture generation without writing
// @Tags Lectures
// @Accept json
// @Param payload body dto.GenerateLecturesRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lectures/generate/preview [post]
func (h *LectureHandler) Preview(c *gin.Context) {
	var req dto.GenerateLecturesRequest
	if !bindJSON(c, &req, "invalid generation payload") {
		return
	}
	summary, err := h.generator.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary List lectures
// @Description Teachers only see their own lectures.
// @Tags Lectures
// @Param teacherCourseId query string false "Teacher course ID"
// @Param status query string false "SCHEDULED, OPEN, LOCKED or CANCELLED"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures [get]
func (h *LectureHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var q dto.LectureQuery
	if !bindQuery(c, &q) {
		return
	}
	lectures, pagination, err := h.lectures.List(c.Request.Context(), actor, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, pagination)
}

// Get godoc
// @Summary Get lecture
// @Tags Lectures
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id} [get]
func (h *LectureHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lecture, err := h.lectures.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// CreateSpecialSession godoc
// @Summary Schedule a special session
// @Tags Lectures
// @Param payload body dto.CreateSpecialSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures [post]
func (h *LectureHandler) CreateSpecialSession(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateSpecialSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	lecture, err := h.lectures.CreateSpecialSession(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// Cancel godoc
// @Summary Cancel a lecture
// @Tags Lectures
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id}/cancel [post]
func (h *LectureHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lecture, err := h.lectures.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Delete godoc
// @Summary Delete a lecture with its attendance and requests
// @Tags Lectures
// @Param id path string true "Lecture ID"
// @Success 204
// @Security BearerAuth
// @Router /lectures/{id} [delete]
func (h *LectureHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.lectures.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
