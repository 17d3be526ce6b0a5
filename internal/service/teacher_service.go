package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type teacherDeleter interface {
	DeleteTeacher(ctx context.Context, id string) error
}

type credentialsNotifier interface {
	SendTeacherCredentials(ctx context.Context, teacher *models.User, password string)
}

// TeacherService manages teacher accounts.
type TeacherService struct {
	repo      teacherRepository
	cascade   teacherDeleter
	notifier  credentialsNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService creates a new teacher service.
func NewTeacherService(repo teacherRepository, cascade teacherDeleter, notifier credentialsNotifier, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cascade: cascade, notifier: notifier, validator: validate, logger: logger}
}

// List returns paginated teachers.
func (s *TeacherService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	role := models.RoleTeacher
	filter.Role = &role
	q := models.ListQuery{Page: filter.Page, PageSize: filter.PageSize}
	q.Normalize()
	filter.Page, filter.PageSize = q.Page, q.PageSize

	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list teachers")
	}
	return teachers, paginationFor(q, total), nil
}

// Get returns a teacher account. Admin accounts are reported as not found.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return user, nil
}

// Create registers a teacher with a generated password and mails the
// credentials. The password is returned once and never stored in clear.
func (s *TeacherService) Create(ctx context.Context, req dto.CreateTeacherRequest) (*dto.CreateTeacherResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	password, err := generatePassword()
	if err != nil {
		return nil, internalError(err, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	teacher := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleTeacher,
		Active:       true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, internalError(err, "failed to create teacher")
	}

	if s.notifier != nil {
		s.notifier.SendTeacherCredentials(ctx, teacher, password)
	}
	s.logger.Info("teacher created", zap.String("user_id", teacher.ID))
	return &dto.CreateTeacherResponse{Teacher: teacher, TemporaryPassword: password}, nil
}

// Update edits a teacher profile. Setting active to false deactivates login.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.UpdateTeacherRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email != teacher.Email {
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
	}

	teacher.Email = email
	teacher.FullName = strings.TrimSpace(req.FullName)
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, lookupError(err, "teacher not found", "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher with their assignments, rules and lectures.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.cascade.DeleteTeacher(ctx, id); err != nil {
		return lookupError(err, "teacher not found", "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.String("user_id", id))
	return nil
}

func (s *TeacherService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to check email")
	}
	if existing.ID != excludeID {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
