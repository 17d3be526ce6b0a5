package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

const attendanceRequestColumns = `r.id, r.lecture_id, r.teacher_id, r.kind, r.extension_type, r.reason, r.status, r.requested_at, r.reviewed_at, r.reviewed_by, r.extends_until, r.admin_notes`

const attendanceRequestDetailSelect = `SELECT ` + attendanceRequestColumns + `,
	u.full_name AS teacher_name, c.code AS course_code, s.name AS section_name,
	l.starts_at AS lecture_starts_at, l.status AS lecture_status
FROM attendance_requests r
JOIN users u ON u.id = r.teacher_id
JOIN lectures l ON l.id = r.lecture_id
JOIN teacher_courses tc ON tc.id = l.teacher_course_id
JOIN courses c ON c.id = tc.course_id
JOIN sections s ON s.id = tc.section_id`

// AttendanceRequestRepository stores edit and extension requests.
type AttendanceRequestRepository struct {
	db *sqlx.DB
}

func NewAttendanceRequestRepository(db *sqlx.DB) *AttendanceRequestRepository {
	return &AttendanceRequestRepository{db: db}
}

func (r *AttendanceRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *AttendanceRequestRepository) Create(ctx context.Context, exec sqlx.ExtContext, req *models.AttendanceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_requests (id, lecture_id, teacher_id, kind, extension_type, reason, status, requested_at)
VALUES (:id, :lecture_id, :teacher_id, :kind, :extension_type, :reason, :status, :requested_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, req); err != nil {
		return fmt.Errorf("create attendance request: %w", err)
	}
	return nil
}

// FindByID loads a request. Pass a transaction to lock the row.
func (r *AttendanceRequestRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AttendanceRequest, error) {
	query := `SELECT ` + attendanceRequestColumns + ` FROM attendance_requests r WHERE r.id = $1`
	if exec != nil {
		query += ` FOR UPDATE`
	}
	var req models.AttendanceRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance request: %w", err)
	}
	return &req, nil
}

func (r *AttendanceRequestRepository) FindDetail(ctx context.Context, id string) (*models.AttendanceRequestDetail, error) {
	var req models.AttendanceRequestDetail
	if err := r.db.GetContext(ctx, &req, attendanceRequestDetailSelect+` WHERE r.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance request detail: %w", err)
	}
	return &req, nil
}

var attendanceRequestSorts = map[string]string{"requested_at": "r.requested_at", "status": "r.status", "lecture_starts_at": "l.starts_at"}

func (r *AttendanceRequestRepository) List(ctx context.Context, filter models.AttendanceRequestFilter) ([]models.AttendanceRequestDetail, int, error) {
	var where whereBuilder
	if filter.TeacherID != "" {
		where.add("r.teacher_id = ?", filter.TeacherID)
	}
	if filter.LectureID != "" {
		where.add("r.lecture_id = ?", filter.LectureID)
	}
	if filter.Kind != "" {
		where.add("r.kind = ?", filter.Kind)
	}
	switch {
	case filter.Status == "":
	case filter.StaleBefore.IsZero():
		where.add("r.status = ?", filter.Status)
	case filter.Status == models.RequestPending:
		where.add("r.status = ?", filter.Status)
		where.add("NOT (r.kind = 'EXTENSION' AND r.requested_at < ?)", filter.StaleBefore)
	case filter.Status == models.RequestExpired:
		where.add("(r.status = 'EXPIRED' OR (r.kind = 'EXTENSION' AND r.status = 'PENDING' AND r.requested_at < ?))", filter.StaleBefore)
	default:
		where.add("r.status = ?", filter.Status)
	}
	cond := ` WHERE 1=1` + where.sql()

	items := []models.AttendanceRequestDetail{}
	if err := r.db.SelectContext(ctx, &items, attendanceRequestDetailSelect+cond+orderAndPage(filter.ListQuery, attendanceRequestSorts, "requested_at", "DESC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attendance_requests r`+cond, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance requests: %w", err)
	}
	return items, total, nil
}

// HasPendingEdit reports whether lectureID already has an edit request awaiting review.
func (r *AttendanceRequestRepository) HasPendingEdit(ctx context.Context, exec sqlx.ExtContext, lectureID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM attendance_requests WHERE lecture_id = $1 AND kind = 'EDIT' AND status = 'PENDING')`
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, lectureID); err != nil {
		return false, fmt.Errorf("check pending edit request: %w", err)
	}
	return exists, nil
}

// HasOpenExtension reports whether lectureID has a pending or approved extension.
func (r *AttendanceRequestRepository) HasOpenExtension(ctx context.Context, exec sqlx.ExtContext, lectureID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM attendance_requests WHERE lecture_id = $1 AND kind = 'EXTENSION' AND status IN ('PENDING', 'APPROVED'))`
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, lectureID); err != nil {
		return false, fmt.Errorf("check open extension request: %w", err)
	}
	return exists, nil
}

// ExpireStale moves pending extensions requested before cutoff to EXPIRED
// and returns the affected ids.
func (r *AttendanceRequestRepository) ExpireStale(ctx context.Context, exec sqlx.ExtContext, cutoff, now time.Time) ([]string, error) {
	const query = `UPDATE attendance_requests SET status = 'EXPIRED', reviewed_at = $2
WHERE kind = 'EXTENSION' AND status = 'PENDING' AND requested_at < $1
RETURNING id`
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, cutoff, now); err != nil {
		return nil, fmt.Errorf("expire stale extension requests: %w", err)
	}
	return ids, nil
}

// Review moves a PENDING request to a terminal status. sql.ErrNoRows means
// the request was not pending anymore.
func (r *AttendanceRequestRepository) Review(ctx context.Context, exec sqlx.ExtContext, req *models.AttendanceRequest) error {
	const query = `UPDATE attendance_requests
SET status = :status, reviewed_at = :reviewed_at, reviewed_by = :reviewed_by, extends_until = :extends_until, admin_notes = :admin_notes
WHERE id = :id AND status = 'PENDING'`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, req)
	if err != nil {
		return fmt.Errorf("review attendance request: %w", err)
	}
	return requireAffected(res)
}
