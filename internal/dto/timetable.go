package dto

// TimetableRuleRequest creates or replaces a weekly timetable rule.
type TimetableRuleRequest struct {
	TeacherCourseID string   `json:"teacherCourseId" validate:"required"`
	Weekdays        []string `json:"weekdays" validate:"required,min=1,max=7,dive,weekday"`
	StartTime       string   `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int      `json:"durationMinutes" validate:"required,min=1,max=600"`
	StartDate       string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	Room            *string  `json:"room" validate:"omitempty,max=64"`
	LectureType     *string  `json:"lectureType" validate:"omitempty,oneof=REGULAR QUIZ TEST LAB MAKEUP OTHER"`
}

// GenerateLecturesRequest bounds a lecture generation run. Dates are inclusive.
type GenerateLecturesRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}
