package models

import (
	"time"

	"github.com/lib/pq"
)

// TimetableRule describes a weekly recurring class slot.
type TimetableRule struct {
	ID              string         `db:"id" json:"id"`
	TeacherCourseID string         `db:"teacher_course_id" json:"teacher_course_id"`
	Weekdays        pq.StringArray `db:"weekdays" json:"weekdays"`
	StartTime       string         `db:"start_time" json:"start_time"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	StartDate       time.Time      `db:"start_date" json:"start_date"`
	EndDate         time.Time      `db:"end_date" json:"end_date"`
	Room            *string        `db:"room" json:"room,omitempty"`
	LectureType     *LectureKind   `db:"lecture_type" json:"lecture_type,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// TimetableRuleFilter narrows rule listings.
type TimetableRuleFilter struct {
	TeacherCourseID string
	TeacherID       string
	ListQuery
}

// SkipReason explains why a rule and day pair produced no lecture.
type SkipReason string

const (
	SkipOutsideRuleRange SkipReason = "OUTSIDE_RULE_RANGE"
	SkipWeekdayMismatch  SkipReason = "WEEKDAY_MISMATCH"
	SkipHoliday          SkipReason = "HOLIDAY"
	SkipDuplicate        SkipReason = "DUPLICATE"
)

// SkipReasons lists every reason in evaluation order.
var SkipReasons = []SkipReason{SkipOutsideRuleRange, SkipWeekdayMismatch, SkipHoliday, SkipDuplicate}

// GenerationSummary reports the outcome of a lecture generation run.
type GenerationSummary struct {
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Processed   int                `json:"processed"`
	Created     int                `json:"created"`
	Skipped     int                `json:"skipped"`
	SkipReasons map[SkipReason]int `json:"skip_reasons"`
	LectureIDs  []string           `json:"lecture_ids"`
	DryRun      bool               `json:"dry_run"`
}

// NewGenerationSummary returns a summary with every reason present at zero.
func NewGenerationSummary(start, end string) *GenerationSummary {
	reasons := make(map[SkipReason]int, len(SkipReasons))
	for _, r := range SkipReasons {
		reasons[r] = 0
	}
	return &GenerationSummary{StartDate: start, EndDate: end, SkipReasons: reasons, LectureIDs: []string{}}
}
