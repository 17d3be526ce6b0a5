package models

import "time"

// RequestKind selects which exception workflow a request belongs to.
type RequestKind string

const (
	RequestKindEdit      RequestKind = "EDIT"
	RequestKindExtension RequestKind = "EXTENSION"
)

// ExtensionType states why a teacher needs a deadline extension.
type ExtensionType string

const (
	ExtensionMissed ExtensionType = "MISSED"
	ExtensionEdit   ExtensionType = "EDIT"
)

// RequestStatus is terminal for every value except PENDING.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
	RequestExpired  RequestStatus = "EXPIRED"
)

// AttendanceRequest holds both edit and extension requests. ExtensionType and
// ExtendsUntil are only set for extensions.
type AttendanceRequest struct {
	ID            string         `db:"id" json:"id"`
	LectureID     string         `db:"lecture_id" json:"lecture_id"`
	TeacherID     string         `db:"teacher_id" json:"teacher_id"`
	Kind          RequestKind    `db:"kind" json:"kind"`
	ExtensionType *ExtensionType `db:"extension_type" json:"extension_type,omitempty"`
	Reason        string         `db:"reason" json:"reason"`
	Status        RequestStatus  `db:"status" json:"status"`
	RequestedAt   time.Time      `db:"requested_at" json:"requested_at"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy    *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ExtendsUntil  *time.Time     `db:"extends_until" json:"extends_until,omitempty"`
	AdminNotes    *string        `db:"admin_notes" json:"admin_notes,omitempty"`
}

// AttendanceRequestDetail joins lecture and teacher context for review screens.
type AttendanceRequestDetail struct {
	AttendanceRequest
	TeacherName     string    `db:"teacher_name" json:"teacher_name"`
	CourseCode      string    `db:"course_code" json:"course_code"`
	SectionName     string    `db:"section_name" json:"section_name"`
	LectureStartsAt time.Time `db:"lecture_starts_at" json:"lecture_starts_at"`
	LectureStatus   string    `db:"lecture_status" json:"lecture_status"`
}

// AttendanceRequestFilter narrows request listings.
type AttendanceRequestFilter struct {
	TeacherID string
	LectureID string
	Kind      RequestKind
	Status    RequestStatus
	// StaleBefore, when set, makes Status match the effective status: pending
	// extensions requested before it count as EXPIRED.
	StaleBefore time.Time
	ListQuery
}
