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

type courseRepository interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
}

type courseDeleter interface {
	DeleteCourse(ctx context.Context, id string) error
}

// CourseService handles course catalogue workflows.
type CourseService struct {
	repo      courseRepository
	cascade   courseDeleter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a new course service.
func NewCourseService(repo courseRepository, cascade courseDeleter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cascade: cascade, validator: validate, logger: logger}
}

// List returns paginated courses.
func (s *CourseService) List(ctx context.Context, q models.ListQuery) ([]models.Course, *models.Pagination, error) {
	q.Normalize()
	courses, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, internalError(err, "failed to list courses")
	}
	return courses, paginationFor(q, total), nil
}

// Get returns course by identifier.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	return course, nil
}

// Create adds a course ensuring code uniqueness.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureUniqueCode(ctx, code, ""); err != nil {
		return nil, err
	}

	course := &models.Course{Code: code, Title: strings.TrimSpace(req.Title), CreditHours: req.CreditHours}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, internalError(err, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureUniqueCode(ctx, code, id); err != nil {
		return nil, err
	}

	course.Code = code
	course.Title = strings.TrimSpace(req.Title)
	course.CreditHours = req.CreditHours
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, lookupError(err, "course not found", "failed to update course")
	}
	return course, nil
}

// Delete removes a course and every assignment teaching it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteCourse(ctx, id); err != nil {
		return lookupError(err, "course not found", "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

func (s *CourseService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return internalError(err, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	return nil
}
