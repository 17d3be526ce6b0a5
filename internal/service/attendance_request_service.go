package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/repository"
	"github.com/noah-isme/uni-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type attendanceRequestStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, req *models.AttendanceRequest) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AttendanceRequest, error)
	FindDetail(ctx context.Context, id string) (*models.AttendanceRequestDetail, error)
	List(ctx context.Context, filter models.AttendanceRequestFilter) ([]models.AttendanceRequestDetail, int, error)
	HasPendingEdit(ctx context.Context, exec sqlx.ExtContext, lectureID string) (bool, error)
	HasOpenExtension(ctx context.Context, exec sqlx.ExtContext, lectureID string) (bool, error)
	ExpireStale(ctx context.Context, exec sqlx.ExtContext, cutoff, now time.Time) ([]string, error)
	Review(ctx context.Context, exec sqlx.ExtContext, req *models.AttendanceRequest) error
}

type requestLectureStore interface {
	FindDetail(ctx context.Context, id string) (*models.LectureDetail, error)
	SetDeadline(ctx context.Context, exec sqlx.ExtContext, id string, deadline time.Time) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LectureStatus) error
}

type attendanceCounter interface {
	CountByLecture(ctx context.Context, exec sqlx.ExtContext, lectureID string) (int, error)
}

// RequestConfig holds the request lifecycle timings.
type RequestConfig struct {
	MarkingGrace    time.Duration
	EditGrace       time.Duration
	RequestTTL      time.Duration
	ExtensionWindow time.Duration
}

// AttendanceRequestService runs the edit and extension request state machine.
// PENDING moves to APPROVED or REJECTED by an admin, and pending extensions
// older than RequestTTL become EXPIRED. Every non pending status is final.
type AttendanceRequestService struct {
	requests  attendanceRequestStore
	lectures  requestLectureStore
	records   attendanceCounter
	tx        database.TxBeginner
	metrics   *MetricsService
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	config    RequestConfig
	now       func() time.Time
}

// NewAttendanceRequestService wires the request lifecycle dependencies.
func NewAttendanceRequestService(
	requests attendanceRequestStore,
	lectures requestLectureStore,
	records attendanceCounter,
	tx database.TxBeginner,
	metrics *MetricsService,
	audit auditLogWriter,
	validate *validator.Validate,
	logger *zap.Logger,
	config RequestConfig,
) *AttendanceRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if config.MarkingGrace <= 0 {
		config.MarkingGrace = 10 * time.Minute
	}
	if config.EditGrace <= 0 {
		config.EditGrace = 20 * time.Minute
	}
	if config.RequestTTL <= 0 {
		config.RequestTTL = 24 * time.Hour
	}
	if config.ExtensionWindow <= 0 {
		config.ExtensionWindow = 24 * time.Hour
	}
	return &AttendanceRequestService{
		requests:  requests,
		lectures:  lectures,
		records:   records,
		tx:        tx,
		metrics:   metrics,
		audit:     newAuditTrail(audit, logger, "attendance_request_service"),
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitEdit asks to reopen a lecture that already has attendance.
func (s *AttendanceRequestService) SubmitEdit(ctx context.Context, teacherID, lectureID string, req dto.SubmitEditRequest) (*models.AttendanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid edit request payload")
	}
	lecture, count, err := s.loadOwnedLecture(ctx, teacherID, lectureID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture has no attendance records")
	}

	pending, err := s.requests.HasPendingEdit(ctx, nil, lecture.ID)
	if err != nil {
		return nil, internalError(err, "failed to check pending edit requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lecture already has a pending edit request")
	}

	request := &models.AttendanceRequest{
		LectureID:   lecture.ID,
		TeacherID:   teacherID,
		Kind:        models.RequestKindEdit,
		Reason:      req.Reason,
		Status:      models.RequestPending,
		RequestedAt: s.now(),
	}
	if err := s.requests.Create(ctx, nil, request); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "lecture already has a pending edit request")
		}
		return nil, internalError(err, "failed to create edit request")
	}

	s.submitted(ctx, request)
	return request, nil
}

// SubmitExtension asks for a fresh marking window after the regular one has
// elapsed. MISSED covers lectures never marked, EDIT covers marked lectures
// past their edit window.
func (s *AttendanceRequestService) SubmitExtension(ctx context.Context, teacherID, lectureID string, req dto.SubmitExtensionRequest) (*models.AttendanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid extension request payload")
	}
	lecture, count, err := s.loadOwnedLecture(ctx, teacherID, lectureID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	extType := models.ExtensionType(req.Type)
	switch extType {
	case models.ExtensionMissed:
		if !now.After(lecture.StartsAt.Add(s.config.MarkingGrace)) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "marking window has not elapsed yet")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture already has attendance records")
		}
	case models.ExtensionEdit:
		if !now.After(lecture.StartsAt.Add(s.config.EditGrace)) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "edit window has not elapsed yet")
		}
		if count == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture has no attendance records")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown extension type")
	}

	s.sweep(ctx)
	open, err := s.requests.HasOpenExtension(ctx, nil, lecture.ID)
	if err != nil {
		return nil, internalError(err, "failed to check open extension requests")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lecture already has a pending or approved extension request")
	}

	request := &models.AttendanceRequest{
		LectureID:     lecture.ID,
		TeacherID:     teacherID,
		Kind:          models.RequestKindExtension,
		ExtensionType: &extType,
		Reason:        req.Reason,
		Status:        models.RequestPending,
		RequestedAt:   now,
	}
	if err := s.requests.Create(ctx, nil, request); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "lecture already has a pending or approved extension request")
		}
		return nil, internalError(err, "failed to create extension request")
	}

	s.submitted(ctx, request)
	return request, nil
}

// Approve accepts a pending request. An approved extension opens a marking
// window of ExtensionWindow from now; an approved edit reopens the lecture.
func (s *AttendanceRequestService) Approve(ctx context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error) {
	return s.review(ctx, reviewerID, id, req, models.RequestApproved)
}

// Reject declines a pending request.
func (s *AttendanceRequestService) Reject(ctx context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error) {
	return s.review(ctx, reviewerID, id, req, models.RequestRejected)
}

func (s *AttendanceRequestService) review(ctx context.Context, reviewerID, id string, req dto.ReviewRequest, decision models.RequestStatus) (*models.AttendanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}

	var (
		request *models.AttendanceRequest
		expired bool
	)
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.requests.FindByID(ctx, tx, id)
		if err != nil {
			return lookupError(err, "attendance request not found", "failed to load attendance request")
		}
		if request.Status != models.RequestPending {
			return alreadyProcessed(request.Status)
		}

		now := s.now()
		request.ReviewedAt = &now
		if s.isStale(request, now) {
			// Expire instead of deciding. The expiry is committed and the
			// caller still gets a conflict.
			request.Status = models.RequestExpired
			if err := s.requests.Review(ctx, tx, request); err != nil {
				return reviewError(err, request.Status)
			}
			expired = true
			return nil
		}

		request.Status = decision
		request.ReviewedBy = &reviewerID
		request.AdminNotes = stringPtr(req.Notes)
		if decision == models.RequestApproved && request.Kind == models.RequestKindExtension {
			until := now.Add(s.config.ExtensionWindow)
			request.ExtendsUntil = &until
		}
		if err := s.requests.Review(ctx, tx, request); err != nil {
			return reviewError(err, decision)
		}

		if decision != models.RequestApproved {
			return nil
		}
		switch request.Kind {
		case models.RequestKindExtension:
			if err := s.lectures.SetDeadline(ctx, tx, request.LectureID, *request.ExtendsUntil); err != nil {
				return internalError(err, "failed to extend lecture deadline")
			}
		case models.RequestKindEdit:
			if err := s.lectures.UpdateStatus(ctx, tx, request.LectureID, models.LectureStatusOpen); err != nil {
				return internalError(err, "failed to reopen lecture")
			}
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to review attendance request")
	}

	if expired {
		s.metrics.RecordAttendanceRequest(request.Kind, models.RequestExpired, 1)
		s.audit.record(ctx, "", models.AuditActionRequestExpire, "attendance_requests", request.ID, nil, request)
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "request expired before review")
	}

	action := models.AuditActionRequestReject
	if decision == models.RequestApproved {
		action = models.AuditActionRequestApprove
	}
	s.metrics.RecordAttendanceRequest(request.Kind, decision, 1)
	s.audit.record(ctx, reviewerID, action, "attendance_requests", request.ID,
		map[string]string{"status": string(models.RequestPending)}, request)
	s.logger.Info("attendance request reviewed",
		zap.String("request_id", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.String("status", string(request.Status)),
		zap.String("reviewer_id", reviewerID),
	)
	return request, nil
}

// List returns requests after expiring stale extensions. Teachers only see
// their own requests.
func (s *AttendanceRequestService) List(ctx context.Context, actor Actor, q dto.AttendanceRequestQuery) ([]models.AttendanceRequestDetail, *models.Pagination, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, nil, validationError(err, "invalid request filter")
	}
	s.sweep(ctx)

	now := s.now()
	filter := models.AttendanceRequestFilter{
		LectureID:   q.LectureID,
		Kind:        models.RequestKind(q.Kind),
		Status:      models.RequestStatus(q.Status),
		StaleBefore: now.Add(-s.config.RequestTTL),
		ListQuery:   models.ListQuery{Page: q.Page, PageSize: q.PageSize, SortBy: "requested_at", SortOrder: "desc"},
	}
	filter.Normalize()
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}

	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list attendance requests")
	}
	for i := range items {
		s.applyEffectiveStatus(&items[i].AttendanceRequest, now)
	}
	return items, paginationFor(filter.ListQuery, total), nil
}

// Get returns one request after expiring stale extensions.
func (s *AttendanceRequestService) Get(ctx context.Context, actor Actor, id string) (*models.AttendanceRequestDetail, error) {
	s.sweep(ctx)
	item, err := s.requests.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "attendance request not found", "failed to load attendance request")
	}
	if !actor.IsAdmin() && item.TeacherID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance request belongs to another teacher")
	}
	s.applyEffectiveStatus(&item.AttendanceRequest, s.now())
	return item, nil
}

// ExpireStale moves every pending extension older than RequestTTL to EXPIRED
// and returns how many were expired.
func (s *AttendanceRequestService) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.requests.ExpireStale(ctx, nil, now.Add(-s.config.RequestTTL), now)
	if err != nil {
		return 0, internalError(err, "failed to expire stale extension requests")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	s.metrics.RecordAttendanceRequest(models.RequestKindExtension, models.RequestExpired, len(ids))
	for _, id := range ids {
		s.audit.record(ctx, "", models.AuditActionRequestExpire, "attendance_requests", id, nil,
			map[string]string{"status": string(models.RequestExpired)})
	}
	s.logger.Info("expired stale extension requests", zap.Int("count", len(ids)))
	return len(ids), nil
}

// sweep runs ExpireStale on read paths. A failed sweep is logged; reads still
// report the effective status.
func (s *AttendanceRequestService) sweep(ctx context.Context) {
	if _, err := s.ExpireStale(ctx); err != nil {
		s.logger.Warn("lazy expiry sweep failed", zap.Error(err))
	}
}

func (s *AttendanceRequestService) isStale(req *models.AttendanceRequest, now time.Time) bool {
	return req.Kind == models.RequestKindExtension &&
		req.Status == models.RequestPending &&
		req.RequestedAt.Add(s.config.RequestTTL).Before(now)
}

func (s *AttendanceRequestService) applyEffectiveStatus(req *models.AttendanceRequest, now time.Time) {
	if s.isStale(req, now) {
		req.Status = models.RequestExpired
	}
}

func (s *AttendanceRequestService) loadOwnedLecture(ctx context.Context, teacherID, lectureID string) (*models.LectureDetail, int, error) {
	lecture, err := s.lectures.FindDetail(ctx, lectureID)
	if err != nil {
		return nil, 0, lookupError(err, "lecture not found", "failed to load lecture")
	}
	if lecture.TeacherID != teacherID {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "lecture belongs to another teacher")
	}
	if lecture.Status == models.LectureStatusCancelled {
		return nil, 0, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture is cancelled")
	}
	count, err := s.records.CountByLecture(ctx, nil, lecture.ID)
	if err != nil {
		return nil, 0, internalError(err, "failed to count attendance records")
	}
	return lecture, count, nil
}

func (s *AttendanceRequestService) submitted(ctx context.Context, request *models.AttendanceRequest) {
	s.metrics.RecordAttendanceRequest(request.Kind, models.RequestPending, 1)
	s.audit.record(ctx, request.TeacherID, models.AuditActionRequestSubmit, "attendance_requests", request.ID, nil, request)
	s.logger.Info("attendance request submitted",
		zap.String("request_id", request.ID),
		zap.String("lecture_id", request.LectureID),
		zap.String("kind", string(request.Kind)),
	)
}

func alreadyProcessed(status models.RequestStatus) error {
	return appErrors.Clone(appErrors.ErrAlreadyProcessed, fmt.Sprintf("request already %s", status))
}

// reviewError turns a lost compare and set into ALREADY_PROCESSED.
func reviewError(err error, status models.RequestStatus) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrAlreadyProcessed, "request already processed")
	}
	return internalError(err, fmt.Sprintf("failed to mark request %s", status))
}
