package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type generatorRuleSource interface {
	ListOverlapping(ctx context.Context, from, to time.Time) ([]models.TimetableRule, error)
}

type holidaySource interface {
	ListBetween(ctx context.Context, exec sqlx.ExtContext, from, to time.Time) ([]models.Holiday, error)
}

type generatorLectureStore interface {
	ExistsForRule(ctx context.Context, exec sqlx.ExtContext, ruleID string, startsAt time.Time) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error
}

// GeneratorConfig tunes lecture generation.
type GeneratorConfig struct {
	Location    *time.Location
	MaxSpanDays int
}

// LectureGeneratorService expands timetable rules into concrete lectures.
type LectureGeneratorService struct {
	rules     generatorRuleSource
	holidays  holidaySource
	lectures  generatorLectureStore
	tx        database.TxBeginner
	metrics   *MetricsService
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	config    GeneratorConfig
}

// NewLectureGeneratorService wires the generator dependencies.
func NewLectureGeneratorService(
	rules generatorRuleSource,
	holidays holidaySource,
	lectures generatorLectureStore,
	tx database.TxBeginner,
	metrics *MetricsService,
	audit auditLogWriter,
	validate *validator.Validate,
	logger *zap.Logger,
	config GeneratorConfig,
) *LectureGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.MaxSpanDays <= 0 {
		config.MaxSpanDays = 90
	}
	return &LectureGeneratorService{
		rules:     rules,
		holidays:  holidays,
		lectures:  lectures,
		tx:        tx,
		metrics:   metrics,
		audit:     newAuditTrail(audit, logger, "lecture_generator"),
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Generate creates lectures for every rule and day in the inclusive range.
// The run is all or nothing: any insert failure rolls back every lecture it
// created. Re-running the same range only reports duplicates.
func (s *LectureGeneratorService) Generate(ctx context.Context, actorID string, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error) {
	window, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	plan, err := s.prepare(ctx, window)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var summary *models.GenerationSummary
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		holidays, err := s.holidaySet(ctx, tx, window)
		if err != nil {
			return err
		}
		plan.holidays = holidays
		var runErr error
		summary, runErr = s.run(ctx, tx, window, plan, false)
		return runErr
	})
	s.metrics.ObserveDBQuery("lecture_generation", time.Since(started))
	if err != nil {
		s.logger.Error("lecture generation rolled back",
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
			zap.Error(err),
		)
		return nil, passThrough(err, "failed to generate lectures")
	}

	s.metrics.RecordGeneration(summary)
	s.audit.record(ctx, actorID, models.AuditActionLecturesGenerate, "lectures", "", nil, map[string]interface{}{
		"start_date":   summary.StartDate,
		"end_date":     summary.EndDate,
		"processed":    summary.Processed,
		"created":      summary.Created,
		"skipped":      summary.Skipped,
		"skip_reasons": summary.SkipReasons,
	})
	s.logger.Info("lectures generated",
		zap.String("start_date", summary.StartDate),
		zap.String("end_date", summary.EndDate),
		zap.Int("processed", summary.Processed),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// Preview evaluates the same range without inserting anything.
func (s *LectureGeneratorService) Preview(ctx context.Context, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error) {
	window, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	plan, err := s.prepare(ctx, window)
	if err != nil {
		return nil, err
	}
	if plan.holidays, err = s.holidaySet(ctx, nil, window); err != nil {
		return nil, err
	}
	summary, err := s.run(ctx, nil, window, plan, true)
	if err != nil {
		return nil, passThrough(err, "failed to preview lectures")
	}
	return summary, nil
}

type generationWindow struct {
	start, end time.Time
	raw        dto.GenerateLecturesRequest
}

type compiledRule struct {
	rule     models.TimetableRule
	from, to time.Time
	weekdays map[time.Weekday]struct{}
	hour     int
	minute   int
	kind     models.LectureKind
}

type generationPlan struct {
	rules    []compiledRule
	holidays map[string]struct{}
}

// parseWindow validates the request. Range dates are calendar days held at
// UTC midnight; wall clock times are resolved in the configured location.
func (s *LectureGeneratorService) parseWindow(req dto.GenerateLecturesRequest) (generationWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return generationWindow{}, validationError(err, "invalid generation payload")
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		return generationWindow{}, validationError(err, "startDate must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		return generationWindow{}, validationError(err, "endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return generationWindow{}, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	if days := daysBetween(start, end) + 1; days > s.config.MaxSpanDays {
		return generationWindow{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("date range spans %d days, maximum is %d", days, s.config.MaxSpanDays))
	}
	return generationWindow{start: start, end: end, raw: req}, nil
}

func (s *LectureGeneratorService) prepare(ctx context.Context, window generationWindow) (*generationPlan, error) {
	rules, err := s.rules.ListOverlapping(ctx, window.start, window.end)
	if err != nil {
		return nil, internalError(err, "failed to load timetable rules")
	}
	plan := &generationPlan{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		compiled, err := compileRule(rule)
		if err != nil {
			return nil, internalError(err, "timetable rule is malformed")
		}
		plan.rules = append(plan.rules, compiled)
	}
	return plan, nil
}

// holidaySet reads the holidays of the range once per run. Generation passes
// its transaction so the set matches the rows it commits against.
func (s *LectureGeneratorService) holidaySet(ctx context.Context, exec sqlx.ExtContext, window generationWindow) (map[string]struct{}, error) {
	holidays, err := s.holidays.ListBetween(ctx, exec, window.start, window.end)
	if err != nil {
		return nil, internalError(err, "failed to load holidays")
	}
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Date.Format(dateLayout)] = struct{}{}
	}
	return set, nil
}

// run evaluates every rule and day pair. Checks are applied in a fixed order
// and only the first failing one is recorded.
func (s *LectureGeneratorService) run(ctx context.Context, exec sqlx.ExtContext, window generationWindow, plan *generationPlan, dryRun bool) (*models.GenerationSummary, error) {
	summary := models.NewGenerationSummary(window.raw.StartDate, window.raw.EndDate)
	summary.DryRun = dryRun

	for _, rule := range plan.rules {
		summary.Processed++
		for day := window.start; !day.After(window.end); day = day.AddDate(0, 0, 1) {
			reason, startsAt, err := s.evaluate(ctx, exec, rule, day, plan.holidays)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				summary.Skipped++
				summary.SkipReasons[reason]++
				continue
			}

			summary.Created++
			if dryRun {
				continue
			}
			ruleID := rule.rule.ID
			lecture := &models.Lecture{
				TimetableRuleID: &ruleID,
				TeacherCourseID: rule.rule.TeacherCourseID,
				StartsAt:        startsAt,
				EndsAt:          startsAt.Add(time.Duration(rule.rule.DurationMinutes) * time.Minute),
				Status:          models.LectureStatusScheduled,
				Kind:            rule.kind,
			}
			if err := s.lectures.Create(ctx, exec, lecture); err != nil {
				return nil, internalError(err, "failed to create lecture")
			}
			summary.LectureIDs = append(summary.LectureIDs, lecture.ID)
		}
	}
	return summary, nil
}

func (s *LectureGeneratorService) evaluate(ctx context.Context, exec sqlx.ExtContext, rule compiledRule, day time.Time, holidays map[string]struct{}) (models.SkipReason, time.Time, error) {
	if day.Before(rule.from) || day.After(rule.to) {
		return models.SkipOutsideRuleRange, time.Time{}, nil
	}
	if _, ok := rule.weekdays[day.Weekday()]; !ok {
		return models.SkipWeekdayMismatch, time.Time{}, nil
	}
	if _, ok := holidays[day.Format(dateLayout)]; ok {
		return models.SkipHoliday, time.Time{}, nil
	}

	startsAt := time.Date(day.Year(), day.Month(), day.Day(), rule.hour, rule.minute, 0, 0, s.config.Location).UTC()
	exists, err := s.lectures.ExistsForRule(ctx, exec, rule.rule.ID, startsAt)
	if err != nil {
		return "", time.Time{}, internalError(err, "failed to check existing lecture")
	}
	if exists {
		return models.SkipDuplicate, time.Time{}, nil
	}
	return "", startsAt, nil
}

func compileRule(rule models.TimetableRule) (compiledRule, error) {
	clock, err := time.Parse("15:04", rule.StartTime)
	if err != nil {
		return compiledRule{}, fmt.Errorf("rule %s start time %q: %w", rule.ID, rule.StartTime, err)
	}
	weekdays := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, name := range rule.Weekdays {
		day, ok := dto.ParseWeekday(name)
		if !ok {
			return compiledRule{}, fmt.Errorf("rule %s weekday %q is not recognised", rule.ID, name)
		}
		weekdays[day] = struct{}{}
	}
	kind := models.LectureKindRegular
	if rule.LectureType != nil && *rule.LectureType != "" {
		kind = *rule.LectureType
	}
	return compiledRule{
		rule:     rule,
		from:     calendarDay(rule.StartDate),
		to:       calendarDay(rule.EndDate),
		weekdays: weekdays,
		hour:     clock.Hour(),
		minute:   clock.Minute(),
		kind:     kind,
	}, nil
}

// calendarDay drops the time of day, keeping the date as stored.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
