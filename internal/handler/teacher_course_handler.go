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

type teacherCourseService interface {
	List(ctx context.Context, filter models.TeacherCourseFilter) ([]models.TeacherCourseDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TeacherCourseDetail, error)
	Assign(ctx context.Context, req dto.AssignTeacherCourseRequest) (*models.TeacherCourseDetail, error)
	Delete(ctx context.Context, id string) error
}

// TeacherCourseHandler serves teaching assignment endpoints.
type TeacherCourseHandler struct {
	service teacherCourseService
}

// NewTeacherCourseHandler constructs a TeacherCourseHandler.
func NewTeacherCourseHandler(service teacherCourseService) *TeacherCourseHandler {
	return &TeacherCourseHandler{service: service}
}

// List godoc
// @Summary List teaching assignments
// @Tags Teacher Courses
// @Param teacherId query string false "Teacher ID"
// @Param courseId query string false "Course ID"
// @Param sectionId query string false "Section ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-courses [get]
func (h *TeacherCourseHandler) List(c *gin.Context) {
	filter := models.TeacherCourseFilter{
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		CourseID:  strings.TrimSpace(c.Query("courseId")),
		SectionID: strings.TrimSpace(c.Query("sectionId")),
		ListQuery: listQueryFromContext(c),
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get teaching assignment
// @Tags Teacher Courses
// @Param id path string true "Teacher course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-courses/{id} [get]
func (h *TeacherCourseHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Assign a teacher to a course and section
// @Tags Teacher Courses
// @Param payload body dto.AssignTeacherCourseRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-courses [post]
func (h *TeacherCourseHandler) Create(c *gin.Context) {
	var req dto.AssignTeacherCourseRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	item, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Delete teaching assignment with its rules and lectures
// @Tags Teacher Courses
// @Param id path string true "Teacher course ID"
// @Success 204
// @Security BearerAuth
// @Router /teacher-courses/{id} [delete]
func (h *TeacherCourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
