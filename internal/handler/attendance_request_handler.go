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

type attendanceRequestService interface {
	SubmitEdit(ctx context.Context, teacherID, lectureID string, req dto.SubmitEditRequest) (*models.AttendanceRequest, error)
	SubmitExtension(ctx context.Context, teacherID, lectureID string, req dto.SubmitExtensionRequest) (*models.AttendanceRequest, error)
	Approve(ctx context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error)
	Reject(ctx context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error)
	List(ctx context.Context, actor service.Actor, q dto.AttendanceRequestQuery) ([]models.AttendanceRequestDetail, *models.Pagination, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.AttendanceRequestDetail, error)
}

// AttendanceRequestHandler serves the edit and extension request workflow.
type AttendanceRequestHandler struct {
	service attendanceRequestService
}

// NewAttendanceRequestHandler constructs an AttendanceRequestHandler.
func NewAttendanceRequestHandler(service attendanceRequestService) *AttendanceRequestHandler {
	return &AttendanceRequestHandler{service: service}
}

// SubmitEdit godoc
// @Summary Ask to edit already marked attendance
// @Tags Attendance Requests
// @Param id path string true "Lecture ID"
// @Param payload body dto.SubmitEditRequest true "Reason"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id}/edit-requests [post]
func (h *AttendanceRequestHandler) SubmitEdit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitEditRequest
	if !bindJSON(c, &req, "invalid edit request payload") {
		return
	}
	created, err := h.service.SubmitEdit(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// SubmitExtension godoc
// @Summary Ask for more time to mark attendance
// @Tags Attendance Requests
// @Param id path string true "Lecture ID"
// @Param payload body dto.SubmitExtensionRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id}/extension-requests [post]
func (h *AttendanceRequestHandler) SubmitExtension(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitExtensionRequest
	if !bindJSON(c, &req, "invalid extension request payload") {
		return
	}
	created, err := h.service.SubmitExtension(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List attendance requests
// @Description Pending requests older than their time limit are reported as EXPIRED.
// @Tags Attendance Requests
// @Param kind query string false "EDIT or EXTENSION"
// @Param status query string false "PENDING, APPROVED, REJECTED or EXPIRED"
// @Param lectureId query string false "Lecture ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance-requests [get]
func (h *AttendanceRequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var q dto.AttendanceRequestQuery
	if !bindQuery(c, &q) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get attendance request
// @Tags Attendance Requests
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance-requests/{id} [get]
func (h *AttendanceRequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Attendance Requests
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest false "Reviewer notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance-requests/{id}/approve [post]
func (h *AttendanceRequestHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Attendance Requests
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest false "Reviewer notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance-requests/{id}/reject [post]
func (h *AttendanceRequestHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

type reviewFunc func(ctx context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error)

func (h *AttendanceRequestHandler) review(c *gin.Context, fn reviewFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	// Notes are optional so an empty body is accepted.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid review payload") {
		return
	}
	updated, err := fn(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
