package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRollNumber(ctx context.Context, roll, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type sectionLookup interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type studentDeleter interface {
	DeleteStudent(ctx context.Context, id string) error
}

// StudentService handles student roster workflows.
type StudentService struct {
	repo      studentRepository
	sections  sectionLookup
	cascade   studentDeleter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service.
func NewStudentService(repo studentRepository, sections sectionLookup, cascade studentDeleter, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, sections: sections, cascade: cascade, validator: validate, logger: logger}
}

// List returns paginated students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	filter.Normalize()
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	return students, paginationFor(filter.ListQuery, total), nil
}

// Get returns student by identifier.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create enrols a student in a section. Roll numbers are unique.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	student := &models.Student{}
	if err := s.apply(ctx, student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, internalError(err, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req dto.StudentRequest) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, lookupError(err, "student not found", "failed to update student")
	}
	return student, nil
}

// Delete removes a student and their attendance records.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteStudent(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	return nil
}

func (s *StudentService) apply(ctx context.Context, student *models.Student, req dto.StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid student payload")
	}
	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		return lookupError(err, "section not found", "failed to load section")
	}

	roll := strings.ToUpper(strings.TrimSpace(req.RollNumber))
	exists, err := s.repo.ExistsByRollNumber(ctx, roll, student.ID)
	if err != nil {
		return internalError(err, "failed to check roll number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "roll number already exists")
	}

	student.SectionID = req.SectionID
	student.RollNumber = roll
	student.FullName = strings.TrimSpace(req.FullName)
	student.Email = nil
	if req.Email != nil {
		if email := normalizeEmail(*req.Email); email != "" {
			student.Email = &email
		}
	}
	return nil
}
