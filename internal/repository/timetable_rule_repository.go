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

const timetableRuleColumns = `r.id, r.teacher_course_id, r.weekdays, r.start_time, r.duration_minutes, r.start_date, r.end_date, r.room, r.lecture_type, r.created_at, r.updated_at`

// TimetableRuleRepository stores weekly recurring slots.
type TimetableRuleRepository struct {
	db *sqlx.DB
}

func NewTimetableRuleRepository(db *sqlx.DB) *TimetableRuleRepository {
	return &TimetableRuleRepository{db: db}
}

var timetableRuleSorts = map[string]string{"start_date": "r.start_date", "start_time": "r.start_time", "created_at": "r.created_at"}

func (r *TimetableRuleRepository) List(ctx context.Context, filter models.TimetableRuleFilter) ([]models.TimetableRule, int, error) {
	var where whereBuilder
	if filter.TeacherCourseID != "" {
		where.add("r.teacher_course_id = ?", filter.TeacherCourseID)
	}
	if filter.TeacherID != "" {
		where.add("tc.teacher_id = ?", filter.TeacherID)
	}
	base := ` FROM timetable_rules r JOIN teacher_courses tc ON tc.id = r.teacher_course_id WHERE 1=1` + where.sql()

	rules := []models.TimetableRule{}
	if err := r.db.SelectContext(ctx, &rules, `SELECT `+timetableRuleColumns+base+orderAndPage(filter.ListQuery, timetableRuleSorts, "start_date", "DESC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable rules: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable rules: %w", err)
	}
	return rules, total, nil
}

// ListOverlapping returns rules whose validity window intersects [from, to].
func (r *TimetableRuleRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.TimetableRule, error) {
	query := `SELECT ` + timetableRuleColumns + ` FROM timetable_rules r WHERE r.start_date <= $2 AND r.end_date >= $1 ORDER BY r.start_date, r.id`
	rules := []models.TimetableRule{}
	if err := r.db.SelectContext(ctx, &rules, query, from.Format("2006-01-02"), to.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list overlapping rules: %w", err)
	}
	return rules, nil
}

func (r *TimetableRuleRepository) FindByID(ctx context.Context, id string) (*models.TimetableRule, error) {
	var rule models.TimetableRule
	if err := r.db.GetContext(ctx, &rule, `SELECT `+timetableRuleColumns+` FROM timetable_rules r WHERE r.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable rule: %w", err)
	}
	return &rule, nil
}

func (r *TimetableRuleRepository) Create(ctx context.Context, rule *models.TimetableRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt, rule.UpdatedAt = now, now
	const query = `INSERT INTO timetable_rules (id, teacher_course_id, weekdays, start_time, duration_minutes, start_date, end_date, room, lecture_type, created_at, updated_at)
VALUES (:id, :teacher_course_id, :weekdays, :start_time, :duration_minutes, :start_date, :end_date, :room, :lecture_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create timetable rule: %w", err)
	}
	return nil
}

// Update rewrites the rule. Lectures already generated from it are left untouched.
func (r *TimetableRuleRepository) Update(ctx context.Context, rule *models.TimetableRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_rules SET teacher_course_id = :teacher_course_id, weekdays = :weekdays, start_time = :start_time,
duration_minutes = :duration_minutes, start_date = :start_date, end_date = :end_date, room = :room, lecture_type = :lecture_type, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update timetable rule: %w", err)
	}
	return requireAffected(res)
}
