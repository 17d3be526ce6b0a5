package models

import "time"

// LectureStatus tracks where a lecture is in its marking lifecycle.
type LectureStatus string

const (
	LectureStatusScheduled LectureStatus = "SCHEDULED"
	LectureStatusOpen      LectureStatus = "OPEN"
	LectureStatusLocked    LectureStatus = "LOCKED"
	LectureStatusCancelled LectureStatus = "CANCELLED"
)

// LectureKind distinguishes regular classes from special sessions.
type LectureKind string

const (
	LectureKindRegular LectureKind = "REGULAR"
	LectureKindQuiz    LectureKind = "QUIZ"
	LectureKindTest    LectureKind = "TEST"
	LectureKindLab     LectureKind = "LAB"
	LectureKindMakeup  LectureKind = "MAKEUP"
	LectureKindOther   LectureKind = "OTHER"
)

// Lecture is a concrete class occurrence. Generated lectures reference their
// timetable rule; special sessions reference the teacher who created them.
type Lecture struct {
	ID                 string        `db:"id" json:"id"`
	TimetableRuleID    *string       `db:"timetable_rule_id" json:"timetable_rule_id,omitempty"`
	TeacherCourseID    string        `db:"teacher_course_id" json:"teacher_course_id"`
	CreatedBy          *string       `db:"created_by" json:"created_by,omitempty"`
	StartsAt           time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time     `db:"ends_at" json:"ends_at"`
	Status             LectureStatus `db:"status" json:"status"`
	AttendanceDeadline *time.Time    `db:"attendance_deadline" json:"attendance_deadline,omitempty"`
	Kind               LectureKind   `db:"kind" json:"kind"`
	Description        *string       `db:"description" json:"description,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// LectureDetail is a lecture joined with its course, section and teacher.
type LectureDetail struct {
	Lecture
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	SectionID   string `db:"section_id" json:"section_id"`
	SectionName string `db:"section_name" json:"section_name"`
	RecordCount int    `db:"record_count" json:"record_count"`
}

// LectureFilter narrows lecture listings.
type LectureFilter struct {
	TeacherID       string
	TeacherCourseID string
	Status          LectureStatus
	From            *time.Time
	To              *time.Time
	ListQuery
}
