package models

import "time"

// Badge is a degree program intake, e.g. "BSCS".
type Badge struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Section is one class group of a badge for a semester and session.
type Section struct {
	ID        string    `db:"id" json:"id"`
	BadgeID   string    `db:"badge_id" json:"badge_id"`
	Name      string    `db:"name" json:"name"`
	Semester  int       `db:"semester" json:"semester"`
	Session   string    `db:"session" json:"session"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter narrows section listings.
type SectionFilter struct {
	BadgeID  string
	Semester int
	Session  string
	ListQuery
}

type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	CreditHours int       `db:"credit_hours" json:"credit_hours"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type Student struct {
	ID         string    `db:"id" json:"id"`
	SectionID  string    `db:"section_id" json:"section_id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      *string   `db:"email" json:"email,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	SectionID string
	ListQuery
}

// TeacherCourse assigns a teacher to teach a course to a section.
type TeacherCourse struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherCourseDetail joins the display names of an assignment.
type TeacherCourseDetail struct {
	TeacherCourse
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	SectionName string `db:"section_name" json:"section_name"`
}

// TeacherCourseFilter narrows assignment listings.
type TeacherCourseFilter struct {
	TeacherID string
	CourseID  string
	SectionID string
	ListQuery
}

// Holiday marks a calendar date on which no lectures are generated.
type Holiday struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
