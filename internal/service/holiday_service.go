package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Holiday, int, error)
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	ExistsByDate(ctx context.Context, date time.Time, excludeID string) (bool, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidayService maintains the non-teaching calendar. Lecture generation reads
// holidays straight from the store, so changes apply to the next run.
type HolidayService struct {
	repo      holidayRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService creates a new holiday service.
func NewHolidayService(repo holidayRepository, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, validator: validate, logger: logger}
}

func (s *HolidayService) List(ctx context.Context, q models.ListQuery) ([]models.Holiday, *models.Pagination, error) {
	q.Normalize()
	holidays, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, internalError(err, "failed to list holidays")
	}
	return holidays, paginationFor(q, total), nil
}

func (s *HolidayService) Get(ctx context.Context, id string) (*models.Holiday, error) {
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "holiday not found", "failed to load holiday")
	}
	return holiday, nil
}

// Create declares a holiday. At most one holiday exists per date.
func (s *HolidayService) Create(ctx context.Context, req dto.HolidayRequest) (*models.Holiday, error) {
	holiday := &models.Holiday{}
	if err := s.apply(ctx, holiday, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, internalError(err, "failed to create holiday")
	}
	return holiday, nil
}

func (s *HolidayService) Update(ctx context.Context, id string, req dto.HolidayRequest) (*models.Holiday, error) {
	holiday, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, holiday, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, holiday); err != nil {
		return nil, lookupError(err, "holiday not found", "failed to update holiday")
	}
	return holiday, nil
}

// Delete removes a holiday. Lectures are not generated retroactively.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "holiday not found", "failed to delete holiday")
	}
	return nil
}

func (s *HolidayService) apply(ctx context.Context, holiday *models.Holiday, req dto.HolidayRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid holiday payload")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return validationError(err, "date must be YYYY-MM-DD")
	}
	exists, err := s.repo.ExistsByDate(ctx, date, holiday.ID)
	if err != nil {
		return internalError(err, "failed to check holiday date")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a holiday already exists on this date")
	}
	holiday.Date = date
	holiday.Name = strings.TrimSpace(req.Name)
	return nil
}
