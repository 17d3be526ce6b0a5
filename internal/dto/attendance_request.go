package dto

// SubmitEditRequest asks an admin to reopen a marked lecture.
type SubmitEditRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=1000"`
}

// SubmitExtensionRequest asks an admin for a fresh marking window.
type SubmitExtensionRequest struct {
	Type   string `json:"type" validate:"required,oneof=MISSED EDIT"`
	Reason string `json:"reason" validate:"required,min=5,max=1000"`
}

// ReviewRequest carries optional reviewer notes on approve or reject.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// AttendanceRequestQuery mirrors the request listing filters.
type AttendanceRequestQuery struct {
	Kind      string `form:"kind" validate:"omitempty,oneof=EDIT EXTENSION"`
	Status    string `form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED EXPIRED"`
	LectureID string `form:"lectureId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
