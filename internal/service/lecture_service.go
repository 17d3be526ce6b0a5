package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type lectureStore interface {
	List(ctx context.Context, filter models.LectureFilter) ([]models.LectureDetail, int, error)
	FindDetail(ctx context.Context, id string) (*models.LectureDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LectureStatus) error
}

type lectureDeleter interface {
	DeleteLecture(ctx context.Context, id string) error
}

type teacherCourseLookup interface {
	FindByID(ctx context.Context, id string) (*models.TeacherCourseDetail, error)
}

// LectureService lists lectures and manages special sessions.
type LectureService struct {
	lectures       lectureStore
	teacherCourses teacherCourseLookup
	cascade        lectureDeleter
	audit          auditTrail
	validator      *validator.Validate
	logger         *zap.Logger
	location       *time.Location
}

// NewLectureService constructs a lecture service. Date filters are resolved in loc.
func NewLectureService(lectures lectureStore, teacherCourses teacherCourseLookup, cascade lectureDeleter, audit auditLogWriter, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *LectureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LectureService{
		lectures:       lectures,
		teacherCourses: teacherCourses,
		cascade:        cascade,
		audit:          newAuditTrail(audit, logger, "lecture_service"),
		validator:      validate,
		logger:         logger,
		location:       loc,
	}
}

// List returns lectures visible to actor. Teachers only see their own.
func (s *LectureService) List(ctx context.Context, actor Actor, q dto.LectureQuery) ([]models.LectureDetail, *models.Pagination, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, nil, validationError(err, "invalid lecture filter")
	}

	filter := models.LectureFilter{
		TeacherCourseID: q.TeacherCourseID,
		Status:          models.LectureStatus(q.Status),
		ListQuery:       models.ListQuery{Page: q.Page, PageSize: q.PageSize},
	}
	filter.Normalize()
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	if q.From != "" {
		from, _ := time.ParseInLocation(dateLayout, q.From, s.location)
		filter.From = &from
	}
	if q.To != "" {
		to, _ := time.ParseInLocation(dateLayout, q.To, s.location)
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}

	items, total, err := s.lectures.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list lectures")
	}
	return items, paginationFor(filter.ListQuery, total), nil
}

// Get returns a lecture the actor may see.
func (s *LectureService) Get(ctx context.Context, actor Actor, id string) (*models.LectureDetail, error) {
	lecture, err := s.lectures.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lecture not found", "failed to load lecture")
	}
	if !actor.IsAdmin() && lecture.TeacherID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecture belongs to another teacher")
	}
	return lecture, nil
}

// CreateSpecialSession schedules a one-off quiz, test, lab or makeup class
// for a course the teacher teaches.
func (s *LectureService) CreateSpecialSession(ctx context.Context, teacherID string, req dto.CreateSpecialSessionRequest) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid special session payload")
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, validationError(err, "startsAt must be an RFC3339 timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, validationError(err, "endsAt must be an RFC3339 timestamp")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endsAt must be after startsAt")
	}

	tc, err := s.teacherCourses.FindByID(ctx, req.TeacherCourseID)
	if err != nil {
		return nil, lookupError(err, "teacher course not found", "failed to load teacher course")
	}
	if tc.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is assigned to another teacher")
	}

	lecture := &models.Lecture{
		TeacherCourseID: tc.ID,
		CreatedBy:       &teacherID,
		StartsAt:        startsAt.UTC(),
		EndsAt:          endsAt.UTC(),
		Status:          models.LectureStatusScheduled,
		Kind:            models.LectureKind(req.Kind),
		Description:     req.Description,
	}
	if err := s.lectures.Create(ctx, nil, lecture); err != nil {
		return nil, internalError(err, "failed to create special session")
	}

	s.audit.record(ctx, teacherID, models.AuditActionCreate, "lectures", lecture.ID, nil, lecture)
	return lecture, nil
}

// Cancel marks an unmarked lecture as cancelled.
func (s *LectureService) Cancel(ctx context.Context, actor Actor, id string) (*models.LectureDetail, error) {
	lecture, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lecture.Status == models.LectureStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture is already cancelled")
	}
	if lecture.RecordCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture already has attendance records")
	}

	if err := s.lectures.UpdateStatus(ctx, nil, lecture.ID, models.LectureStatusCancelled); err != nil {
		return nil, lookupError(err, "lecture not found", "failed to cancel lecture")
	}
	previous := lecture.Status
	lecture.Status = models.LectureStatusCancelled

	s.audit.record(ctx, actor.ID, models.AuditActionLectureCancel, "lectures", lecture.ID,
		map[string]string{"status": string(previous)}, map[string]string{"status": string(lecture.Status)})
	return lecture, nil
}

// Delete removes a lecture together with its attendance records and requests.
func (s *LectureService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	lecture, err := s.lectures.FindDetail(ctx, id)
	if err != nil {
		return lookupError(err, "lecture not found", "failed to load lecture")
	}
	if err := s.cascade.DeleteLecture(ctx, id); err != nil {
		return lookupError(err, "lecture not found", "failed to delete lecture")
	}
	s.audit.record(ctx, actor.ID, models.AuditActionDelete, "lectures", id, lecture, nil)
	return nil
}
