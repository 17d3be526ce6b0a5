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

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Exists(ctx context.Context, section *models.Section) (bool, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
}

type badgeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Badge, error)
}

type sectionDeleter interface {
	DeleteSection(ctx context.Context, id string) error
}

// SectionService manages class groups of a badge.
type SectionService struct {
	repo      sectionRepository
	badges    badgeLookup
	cascade   sectionDeleter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, badges badgeLookup, cascade sectionDeleter, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, badges: badges, cascade: cascade, validator: validate, logger: logger}
}

func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	filter.Normalize()
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list sections")
	}
	return sections, paginationFor(filter.ListQuery, total), nil
}

func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	return section, nil
}

// Create adds a section. The (badge, name, semester, session) tuple is unique.
func (s *SectionService) Create(ctx context.Context, req dto.SectionRequest) (*models.Section, error) {
	section := &models.Section{}
	if err := s.apply(ctx, section, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, internalError(err, "failed to create section")
	}
	return section, nil
}

func (s *SectionService) Update(ctx context.Context, id string, req dto.SectionRequest) (*models.Section, error) {
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, section, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, lookupError(err, "section not found", "failed to update section")
	}
	return section, nil
}

// Delete removes a section together with its students, assignments and lectures.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteSection(ctx, id); err != nil {
		return lookupError(err, "section not found", "failed to delete section")
	}
	s.logger.Info("section deleted", zap.String("section_id", id))
	return nil
}

func (s *SectionService) apply(ctx context.Context, section *models.Section, req dto.SectionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid section payload")
	}
	if _, err := s.badges.FindByID(ctx, req.BadgeID); err != nil {
		return lookupError(err, "badge not found", "failed to load badge")
	}

	section.BadgeID = req.BadgeID
	section.Name = strings.TrimSpace(req.Name)
	section.Semester = req.Semester
	section.Session = req.Session

	exists, err := s.repo.Exists(ctx, section)
	if err != nil {
		return internalError(err, "failed to check section")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "section already exists for this badge, semester and session")
	}
	return nil
}
