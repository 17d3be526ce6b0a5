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

const lectureColumns = `l.id, l.timetable_rule_id, l.teacher_course_id, l.created_by, l.starts_at, l.ends_at, l.status, l.attendance_deadline, l.kind, l.description, l.created_at, l.updated_at`

const lectureDetailSelect = `SELECT ` + lectureColumns + `,
	tc.teacher_id, c.code AS course_code, c.title AS course_title, s.id AS section_id, s.name AS section_name,
	(SELECT COUNT(*) FROM attendance_records ar WHERE ar.lecture_id = l.id) AS record_count
FROM lectures l
JOIN teacher_courses tc ON tc.id = l.teacher_course_id
JOIN courses c ON c.id = tc.course_id
JOIN sections s ON s.id = tc.section_id`

// LectureRepository stores concrete class occurrences.
type LectureRepository struct {
	db *sqlx.DB
}

func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

func (r *LectureRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a lecture. Pass a transaction to read with a row lock.
func (r *LectureRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error) {
	query := `SELECT ` + lectureColumns + ` FROM lectures l WHERE l.id = $1`
	if exec != nil {
		query += ` FOR UPDATE`
	}
	var lecture models.Lecture
	if err := sqlx.GetContext(ctx, r.exec(exec), &lecture, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lecture: %w", err)
	}
	return &lecture, nil
}

// FindDetail loads a lecture with its course, section and record count.
func (r *LectureRepository) FindDetail(ctx context.Context, id string) (*models.LectureDetail, error) {
	var lecture models.LectureDetail
	if err := r.db.GetContext(ctx, &lecture, lectureDetailSelect+` WHERE l.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lecture detail: %w", err)
	}
	return &lecture, nil
}

var lectureSorts = map[string]string{"starts_at": "l.starts_at", "status": "l.status"}

func (r *LectureRepository) List(ctx context.Context, filter models.LectureFilter) ([]models.LectureDetail, int, error) {
	var where whereBuilder
	if filter.TeacherID != "" {
		where.add("tc.teacher_id = ?", filter.TeacherID)
	}
	if filter.TeacherCourseID != "" {
		where.add("l.teacher_course_id = ?", filter.TeacherCourseID)
	}
	if filter.Status != "" {
		where.add("l.status = ?", filter.Status)
	}
	if filter.From != nil {
		where.add("l.starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("l.starts_at < ?", *filter.To)
	}
	cond := ` WHERE 1=1` + where.sql()

	items := []models.LectureDetail{}
	if err := r.db.SelectContext(ctx, &items, lectureDetailSelect+cond+orderAndPage(filter.ListQuery, lectureSorts, "starts_at", "ASC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list lectures: %w", err)
	}
	var total int
	countQuery := `SELECT COUNT(*) FROM lectures l JOIN teacher_courses tc ON tc.id = l.teacher_course_id` + cond
	if err := r.db.GetContext(ctx, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count lectures: %w", err)
	}
	return items, total, nil
}

// ExistsForRule reports whether ruleID already produced a lecture at startsAt.
func (r *LectureRepository) ExistsForRule(ctx context.Context, exec sqlx.ExtContext, ruleID string, startsAt time.Time) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM lectures WHERE timetable_rule_id = $1 AND starts_at = $2)`
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, ruleID, startsAt); err != nil {
		return false, fmt.Errorf("check lecture exists: %w", err)
	}
	return exists, nil
}

func (r *LectureRepository) Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lecture.CreatedAt, lecture.UpdatedAt = now, now
	const query = `INSERT INTO lectures (id, timetable_rule_id, teacher_course_id, created_by, starts_at, ends_at, status, attendance_deadline, kind, description, created_at, updated_at)
VALUES (:id, :timetable_rule_id, :teacher_course_id, :created_by, :starts_at, :ends_at, :status, :attendance_deadline, :kind, :description, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

func (r *LectureRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LectureStatus) error {
	const query = `UPDATE lectures SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lecture status: %w", err)
	}
	return requireAffected(res)
}

// SetDeadline stores an approved extension window on the lecture.
func (r *LectureRepository) SetDeadline(ctx context.Context, exec sqlx.ExtContext, id string, deadline time.Time) error {
	const query = `UPDATE lectures SET attendance_deadline = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, deadline, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set lecture deadline: %w", err)
	}
	return requireAffected(res)
}
