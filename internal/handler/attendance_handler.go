package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, teacherID, lectureID string, req dto.MarkAttendanceRequest) (*models.AttendanceSheet, error)
	Sheet(ctx context.Context, actor service.Actor, lectureID string) (*models.AttendanceSheet, error)
}

type attendanceExporter interface {
	ExportLecture(ctx context.Context, actor service.Actor, lectureID, format string) (*service.ExportFile, error)
}

// AttendanceHandler serves marking, sheet and export endpoints for one lecture.
type AttendanceHandler struct {
	attendance attendanceService
	reports    attendanceExporter
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, reports attendanceExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, reports: reports}
}

// Sheet godoc
// @Summary Attendance sheet for a lecture
// @Tags Attendance
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id}/attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	sheet, err := h.attendance.Sheet(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Mark godoc
// @Summary Mark attendance
// @Description Upserts one record per student while the marking window is open. The lecture is locked afterwards.
// @Tags Attendance
// @Param id path string true "Lecture ID"
// @Param payload body dto.MarkAttendanceRequest true "Entries"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /my/lectures/{id}/attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	sheet, err := h.attendance.Mark(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Export godoc
// @Summary Export attendance sheet
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Lecture ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /my/lectures/{id}/attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	file, err := h.reports.ExportLecture(c.Request.Context(), actor, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
