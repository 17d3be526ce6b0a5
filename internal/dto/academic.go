package dto

// CreateBadgeRequest registers a degree program.
type CreateBadgeRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateBadgeRequest replaces the mutable badge fields.
type UpdateBadgeRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// SectionRequest creates or updates a section.
type SectionRequest struct {
	BadgeID  string `json:"badgeId" validate:"required"`
	Name     string `json:"name" validate:"required,max=32"`
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
	Session  string `json:"session" validate:"required,session"`
}

// CourseRequest creates or updates a course.
type CourseRequest struct {
	Code        string `json:"code" validate:"required,max=16"`
	Title       string `json:"title" validate:"required,max=128"`
	CreditHours int    `json:"creditHours" validate:"required,min=1,max=6"`
}

// StudentRequest creates or updates a student.
type StudentRequest struct {
	SectionID  string  `json:"sectionId" validate:"required"`
	RollNumber string  `json:"rollNumber" validate:"required,max=32"`
	FullName   string  `json:"fullName" validate:"required,max=128"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

// HolidayRequest declares a non-teaching date.
type HolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required,max=128"`
}

// AssignTeacherCourseRequest links a teacher, course and section.
type AssignTeacherCourseRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	SectionID string `json:"sectionId" validate:"required"`
}
