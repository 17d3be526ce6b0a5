package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type markingLectureStore interface {
	FindDetail(ctx context.Context, id string) (*models.LectureDetail, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LectureStatus) error
}

type attendanceStore interface {
	CountByLecture(ctx context.Context, exec sqlx.ExtContext, lectureID string) (int, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, records []models.AttendanceRecord) error
	ListSheet(ctx context.Context, lectureID, sectionID string) ([]models.AttendanceRow, error)
}

type sectionMembership interface {
	CountInSection(ctx context.Context, sectionID string, ids []string) (int, error)
}

// MarkingWindow holds the grace periods after a lecture starts.
type MarkingWindow struct {
	MarkingGrace time.Duration
	EditGrace    time.Duration
}

// Allows reports whether attendance can be written for lecture right now.
// Open lectures and lectures with a future deadline always allow marking.
// Otherwise the first mark must land within MarkingGrace of the start and
// corrections within EditGrace.
func (w MarkingWindow) Allows(lecture models.Lecture, recordCount int, now time.Time) bool {
	if lecture.Status == models.LectureStatusCancelled {
		return false
	}
	if lecture.Status == models.LectureStatusOpen {
		return true
	}
	if lecture.AttendanceDeadline != nil && !now.After(*lecture.AttendanceDeadline) {
		return true
	}
	if now.Before(lecture.StartsAt) {
		return false
	}
	if recordCount == 0 {
		return !now.After(lecture.StartsAt.Add(w.MarkingGrace))
	}
	return !now.After(lecture.StartsAt.Add(w.EditGrace))
}

// AttendanceService records and reads lecture attendance.
type AttendanceService struct {
	lectures  markingLectureStore
	records   attendanceStore
	students  sectionMembership
	tx        database.TxBeginner
	metrics   *MetricsService
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	window    MarkingWindow
	now       func() time.Time
}

// NewAttendanceService constructs an attendance service.
func NewAttendanceService(
	lectures markingLectureStore,
	records attendanceStore,
	students sectionMembership,
	tx database.TxBeginner,
	metrics *MetricsService,
	audit auditLogWriter,
	validate *validator.Validate,
	logger *zap.Logger,
	window MarkingWindow,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if window.MarkingGrace <= 0 {
		window.MarkingGrace = 10 * time.Minute
	}
	if window.EditGrace <= 0 {
		window.EditGrace = 20 * time.Minute
	}
	return &AttendanceService{
		lectures:  lectures,
		records:   records,
		students:  students,
		tx:        tx,
		metrics:   metrics,
		audit:     newAuditTrail(audit, logger, "attendance_service"),
		validator: validate,
		logger:    logger,
		window:    window,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Mark upserts one record per student and locks the lecture.
func (s *AttendanceService) Mark(ctx context.Context, teacherID, lectureID string, req dto.MarkAttendanceRequest) (*models.AttendanceSheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}

	detail, err := s.lectures.FindDetail(ctx, lectureID)
	if err != nil {
		return nil, lookupError(err, "lecture not found", "failed to load lecture")
	}
	if detail.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecture belongs to another teacher")
	}

	// Last entry wins when a student appears twice.
	statuses := make(map[string]models.AttendanceStatus, len(req.Entries))
	order := make([]string, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if _, seen := statuses[entry.StudentID]; !seen {
			order = append(order, entry.StudentID)
		}
		statuses[entry.StudentID] = entry.Status
	}

	enrolled, err := s.students.CountInSection(ctx, detail.SectionID, order)
	if err != nil {
		return nil, internalError(err, "failed to verify students")
	}
	if enrolled != len(order) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more students do not belong to the lecture's section")
	}

	now := s.now()
	records := make([]models.AttendanceRecord, 0, len(order))
	for _, studentID := range order {
		records = append(records, models.AttendanceRecord{
			LectureID: lectureID,
			StudentID: studentID,
			Status:    statuses[studentID],
			MarkedAt:  now,
			MarkedBy:  teacherID,
		})
	}

	var previous models.LectureStatus
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		lecture, err := s.lectures.FindByID(ctx, tx, lectureID)
		if err != nil {
			return lookupError(err, "lecture not found", "failed to load lecture")
		}
		count, err := s.records.CountByLecture(ctx, tx, lectureID)
		if err != nil {
			return internalError(err, "failed to count attendance records")
		}
		if !s.window.Allows(*lecture, count, now) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "attendance window is closed for this lecture")
		}
		previous = lecture.Status
		if err := s.records.Upsert(ctx, tx, records); err != nil {
			return internalError(err, "failed to save attendance")
		}
		if err := s.lectures.UpdateStatus(ctx, tx, lectureID, models.LectureStatusLocked); err != nil {
			return internalError(err, "failed to lock lecture")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to mark attendance")
	}

	s.metrics.RecordAttendanceMarked(len(records))
	s.audit.record(ctx, teacherID, models.AuditActionAttendanceMark, "lectures", lectureID,
		map[string]string{"status": string(previous)},
		map[string]interface{}{"status": models.LectureStatusLocked, "records": len(records)})

	return s.Sheet(ctx, Actor{ID: teacherID, Role: models.RoleTeacher}, lectureID)
}

// Sheet returns every student of the lecture's section with their mark.
func (s *AttendanceService) Sheet(ctx context.Context, actor Actor, lectureID string) (*models.AttendanceSheet, error) {
	detail, err := s.lectures.FindDetail(ctx, lectureID)
	if err != nil {
		return nil, lookupError(err, "lecture not found", "failed to load lecture")
	}
	if !actor.IsAdmin() && detail.TeacherID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecture belongs to another teacher")
	}

	rows, err := s.records.ListSheet(ctx, lectureID, detail.SectionID)
	if err != nil {
		return nil, internalError(err, "failed to load attendance sheet")
	}

	sheet := &models.AttendanceSheet{
		Lecture: *detail,
		Rows:    rows,
		CanMark: s.window.Allows(detail.Lecture, detail.RecordCount, s.now()),
		Summary: map[string]int{},
	}
	for _, row := range rows {
		if row.Status == nil {
			continue
		}
		sheet.Marked++
		sheet.Summary[string(*row.Status)]++
	}
	return sheet, nil
}
