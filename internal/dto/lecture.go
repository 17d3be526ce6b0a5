package dto

import "github.com/noah-isme/uni-attendance-api/internal/models"

// CreateSpecialSessionRequest schedules a one-off lecture outside the timetable.
type CreateSpecialSessionRequest struct {
	TeacherCourseID string  `json:"teacherCourseId" validate:"required"`
	StartsAt        string  `json:"startsAt" validate:"required"`
	EndsAt          string  `json:"endsAt" validate:"required"`
	Kind            string  `json:"kind" validate:"required,oneof=QUIZ TEST LAB MAKEUP OTHER"`
	Description     *string `json:"description" validate:"omitempty,max=500"`
}

// LectureQuery mirrors the supported lecture listing filters.
type LectureQuery struct {
	TeacherCourseID string `form:"teacherCourseId"`
	Status          string `form:"status" validate:"omitempty,oneof=SCHEDULED OPEN LOCKED CANCELLED"`
	From            string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To              string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page            int    `form:"page"`
	PageSize        int    `form:"pageSize"`
}

// MarkEntry is one student's mark.
type MarkEntry struct {
	StudentID string                  `json:"studentId" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE SICK EXCUSED"`
}

// MarkAttendanceRequest upserts marks for a lecture.
type MarkAttendanceRequest struct {
	Entries []MarkEntry `json:"entries" validate:"required,min=1,dive"`
}
