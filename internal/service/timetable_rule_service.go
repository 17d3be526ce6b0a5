package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type timetableRuleRepository interface {
	List(ctx context.Context, filter models.TimetableRuleFilter) ([]models.TimetableRule, int, error)
	FindByID(ctx context.Context, id string) (*models.TimetableRule, error)
	Create(ctx context.Context, rule *models.TimetableRule) error
	Update(ctx context.Context, rule *models.TimetableRule) error
}

type timetableRuleDeleter interface {
	DeleteTimetableRule(ctx context.Context, id string) error
}

// TimetableRuleService manages weekly recurring class slots.
type TimetableRuleService struct {
	repo           timetableRuleRepository
	teacherCourses teacherCourseLookup
	cascade        timetableRuleDeleter
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewTimetableRuleService creates a new timetable rule service.
func NewTimetableRuleService(repo timetableRuleRepository, teacherCourses teacherCourseLookup, cascade timetableRuleDeleter, validate *validator.Validate, logger *zap.Logger) *TimetableRuleService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableRuleService{repo: repo, teacherCourses: teacherCourses, cascade: cascade, validator: validate, logger: logger}
}

func (s *TimetableRuleService) List(ctx context.Context, filter models.TimetableRuleFilter) ([]models.TimetableRule, *models.Pagination, error) {
	filter.Normalize()
	rules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list timetable rules")
	}
	return rules, paginationFor(filter.ListQuery, total), nil
}

func (s *TimetableRuleService) Get(ctx context.Context, id string) (*models.TimetableRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "timetable rule not found", "failed to load timetable rule")
	}
	return rule, nil
}

// Create adds a rule. Lectures are produced later by the generator.
func (s *TimetableRuleService) Create(ctx context.Context, req dto.TimetableRuleRequest) (*models.TimetableRule, error) {
	rule := &models.TimetableRule{}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, internalError(err, "failed to create timetable rule")
	}
	return rule, nil
}

// Update rewrites a rule. Already generated lectures keep their schedule.
func (s *TimetableRuleService) Update(ctx context.Context, id string, req dto.TimetableRuleRequest) (*models.TimetableRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, lookupError(err, "timetable rule not found", "failed to update timetable rule")
	}
	return rule, nil
}

// Delete removes a rule and every lecture generated from it.
func (s *TimetableRuleService) Delete(ctx context.Context, id string) error {
	if err := s.cascade.DeleteTimetableRule(ctx, id); err != nil {
		return lookupError(err, "timetable rule not found", "failed to delete timetable rule")
	}
	s.logger.Info("timetable rule deleted", zap.String("rule_id", id))
	return nil
}

func (s *TimetableRuleService) apply(ctx context.Context, rule *models.TimetableRule, req dto.TimetableRuleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid timetable rule payload")
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		return validationError(err, "startDate must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		return validationError(err, "endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	if _, err := s.teacherCourses.FindByID(ctx, req.TeacherCourseID); err != nil {
		return lookupError(err, "teacher course not found", "failed to load teacher course")
	}

	rule.TeacherCourseID = req.TeacherCourseID
	rule.Weekdays = canonicalWeekdays(req.Weekdays)
	rule.StartTime = req.StartTime
	rule.DurationMinutes = req.DurationMinutes
	rule.StartDate = start
	rule.EndDate = end
	rule.Room = req.Room
	rule.LectureType = nil
	if req.LectureType != nil {
		kind := models.LectureKind(*req.LectureType)
		rule.LectureType = &kind
	}
	return nil
}

// canonicalWeekdays stores names as time.Weekday prints them, once each,
// ordered Sunday first.
func canonicalWeekdays(names []string) pq.StringArray {
	var seen [7]bool
	for _, name := range names {
		if day, ok := dto.ParseWeekday(name); ok {
			seen[day] = true
		}
	}
	out := pq.StringArray{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if seen[d] {
			out = append(out, d.String())
		}
	}
	return out
}
