package dto

import "github.com/noah-isme/uni-attendance-api/internal/models"

// CreateTeacherRequest creates a teacher account with a generated password.
type CreateTeacherRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=128"`
}

// UpdateTeacherRequest edits teacher profile fields.
type UpdateTeacherRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=128"`
	Active   *bool  `json:"active"`
}

// CreateTeacherResponse is returned once; the password is not retrievable later.
type CreateTeacherResponse struct {
	Teacher           *models.User `json:"teacher"`
	TemporaryPassword string       `json:"temporaryPassword"`
}
