package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type teacherCourseRepository interface {
	List(ctx context.Context, filter models.TeacherCourseFilter) ([]models.TeacherCourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherCourseDetail, error)
	Exists(ctx context.Context, teacherID, courseID, sectionID string) (bool, error)
	Create(ctx context.Context, tc *models.TeacherCourse) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type teacherCourseDeleter interface {
	DeleteTeacherCourse(ctx context.Context, id string) error
}

// TeacherCourseService assigns teachers to courses per section.
type TeacherCourseService struct {
	repo      teacherCourseRepository
	users     userLookup
	courses   courseLookup
	sections  sectionLookup
	cascade   teacherCourseDeleter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherCourseService creates a new assignment service.
func NewTeacherCourseService(
	repo teacherCourseRepository,
	users userLookup,
	courses courseLookup,
	sections sectionLookup,
	cascade teacherCourseDeleter,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeacherCourseService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherCourseService{
		repo:      repo,
		users:     users,
		courses:   courses,
		sections:  sections,
		cascade:   cascade,
		validator: validate,
		logger:    logger,
	}
}

// List returns assignments with display names.
func (s *TeacherCourseService) List(ctx context.Context, filter models.TeacherCourseFilter) ([]models.TeacherCourseDetail, *models.Pagination, error) {
	filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list teacher courses")
	}
	return items, paginationFor(filter.ListQuery, total), nil
}

func (s *TeacherCourseService) Get(ctx context.Context, id string) (*models.TeacherCourseDetail, error) {
	tc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher course not found", "failed to load teacher course")
	}
	return tc, nil
}

// Assign links an active teacher to a course and section. Each triple is
// assigned at most once.
func (s *TeacherCourseService) Assign(ctx context.Context, req dto.AssignTeacherCourseRequest) (*models.TeacherCourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher course payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher account is inactive")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}

	exists, err := s.repo.Exists(ctx, req.TeacherID, req.CourseID, req.SectionID)
	if err != nil {
		return nil, internalError(err, "failed to check teacher course")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to this course and section")
	}

	tc := &models.TeacherCourse{TeacherID: req.TeacherID, CourseID: req.CourseID, SectionID: req.SectionID}
	if err := s.repo.Create(ctx, tc); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to this course and section")
		}
		return nil, internalError(err, "failed to assign teacher course")
	}
	return s.Get(ctx, tc.ID)
}

// Delete removes an assignment with its rules and lectures.
func (s *TeacherCourseService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteTeacherCourse(ctx, id); err != nil {
		return lookupError(err, "teacher course not found", "failed to delete teacher course")
	}
	s.logger.Info("teacher course deleted", zap.String("teacher_course_id", id))
	return nil
}
