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

type badgeRepository interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Badge, int, error)
	FindByID(ctx context.Context, id string) (*models.Badge, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, badge *models.Badge) error
	Update(ctx context.Context, badge *models.Badge) error
}

type badgeDeleter interface {
	DeleteBadge(ctx context.Context, id string) error
}

// BadgeService handles degree program workflows.
type BadgeService struct {
	repo      badgeRepository
	cascade   badgeDeleter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBadgeService creates a new badge service.
func NewBadgeService(repo badgeRepository, cascade badgeDeleter, validate *validator.Validate, logger *zap.Logger) *BadgeService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{repo: repo, cascade: cascade, validator: validate, logger: logger}
}

// List returns paginated badges.
func (s *BadgeService) List(ctx context.Context, q models.ListQuery) ([]models.Badge, *models.Pagination, error) {
	q.Normalize()
	badges, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, internalError(err, "failed to list badges")
	}
	return badges, paginationFor(q, total), nil
}

// Get returns badge by identifier.
func (s *BadgeService) Get(ctx context.Context, id string) (*models.Badge, error) {
	badge, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "badge not found", "failed to load badge")
	}
	return badge, nil
}

// Create adds a badge ensuring the name is unique.
func (s *BadgeService) Create(ctx context.Context, req dto.CreateBadgeRequest) (*models.Badge, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid badge payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	badge := &models.Badge{Name: name, Description: strings.TrimSpace(req.Description)}
	if err := s.repo.Create(ctx, badge); err != nil {
		return nil, internalError(err, "failed to create badge")
	}
	return badge, nil
}

// Update modifies an existing badge.
func (s *BadgeService) Update(ctx context.Context, id string, req dto.UpdateBadgeRequest) (*models.Badge, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid badge payload")
	}
	badge, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}

	badge.Name = name
	badge.Description = strings.TrimSpace(req.Description)
	if err := s.repo.Update(ctx, badge); err != nil {
		return nil, lookupError(err, "badge not found", "failed to update badge")
	}
	return badge, nil
}

// Delete removes a badge with its sections and everything below them.
func (s *BadgeService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteBadge(ctx, id); err != nil {
		return lookupError(err, "badge not found", "failed to delete badge")
	}
	s.logger.Info("badge deleted", zap.String("badge_id", id))
	return nil
}

func (s *BadgeService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return internalError(err, "failed to check badge name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "badge name already exists")
	}
	return nil
}
