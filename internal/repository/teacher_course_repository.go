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

const teacherCourseDetailSelect = `SELECT tc.id, tc.teacher_id, tc.course_id, tc.section_id, tc.created_at,
	u.full_name AS teacher_name, c.code AS course_code, c.title AS course_title, s.name AS section_name
FROM teacher_courses tc
JOIN users u ON u.id = tc.teacher_id
JOIN courses c ON c.id = tc.course_id
JOIN sections s ON s.id = tc.section_id`

// TeacherCourseRepository stores teacher to course and section assignments.
type TeacherCourseRepository struct {
	db *sqlx.DB
}

func NewTeacherCourseRepository(db *sqlx.DB) *TeacherCourseRepository {
	return &TeacherCourseRepository{db: db}
}

var teacherCourseSorts = map[string]string{"course_code": "c.code", "teacher_name": "u.full_name", "created_at": "tc.created_at"}

func (r *TeacherCourseRepository) List(ctx context.Context, filter models.TeacherCourseFilter) ([]models.TeacherCourseDetail, int, error) {
	var where whereBuilder
	if filter.TeacherID != "" {
		where.add("tc.teacher_id = ?", filter.TeacherID)
	}
	if filter.CourseID != "" {
		where.add("tc.course_id = ?", filter.CourseID)
	}
	if filter.SectionID != "" {
		where.add("tc.section_id = ?", filter.SectionID)
	}
	cond := ` WHERE 1=1` + where.sql()

	items := []models.TeacherCourseDetail{}
	query := teacherCourseDetailSelect + cond + orderAndPage(filter.ListQuery, teacherCourseSorts, "course_code", "ASC")
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teacher_courses tc`+cond, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher courses: %w", err)
	}
	return items, total, nil
}

func (r *TeacherCourseRepository) FindByID(ctx context.Context, id string) (*models.TeacherCourseDetail, error) {
	var item models.TeacherCourseDetail
	if err := r.db.GetContext(ctx, &item, teacherCourseDetailSelect+` WHERE tc.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher course: %w", err)
	}
	return &item, nil
}

func (r *TeacherCourseRepository) Exists(ctx context.Context, teacherID, courseID, sectionID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM teacher_courses WHERE teacher_id = $1 AND course_id = $2 AND section_id = $3)`
	if err := r.db.GetContext(ctx, &exists, query, teacherID, courseID, sectionID); err != nil {
		return false, fmt.Errorf("check teacher course: %w", err)
	}
	return exists, nil
}

func (r *TeacherCourseRepository) Create(ctx context.Context, tc *models.TeacherCourse) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	tc.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO teacher_courses (id, teacher_id, course_id, section_id, created_at) VALUES (:id, :teacher_id, :course_id, :section_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tc); err != nil {
		return fmt.Errorf("create teacher course: %w", err)
	}
	return nil
}
