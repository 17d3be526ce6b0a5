package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

const studentColumns = `id, section_id, roll_number, full_name, email, created_at, updated_at`

// StudentRepository stores enrolled students.
type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

var studentSorts = map[string]string{"roll_number": "roll_number", "full_name": "full_name", "created_at": "created_at"}

func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var where whereBuilder
	if filter.SectionID != "" {
		where.add("section_id = ?", filter.SectionID)
	}
	if filter.Search != "" {
		where.add("(LOWER(roll_number) LIKE ? OR LOWER(full_name) LIKE ?)", likePattern(filter.Search))
	}
	base := `FROM students WHERE 1=1` + where.sql()

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, `SELECT `+studentColumns+` `+base+orderAndPage(filter.ListQuery, studentSorts, "roll_number", "ASC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

func (r *StudentRepository) ExistsByRollNumber(ctx context.Context, roll, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE UPPER(roll_number) = UPPER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, roll, excludeID); err != nil {
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return exists, nil
}

// CountInSection returns how many of ids belong to sectionID.
func (r *StudentRepository) CountInSection(ctx context.Context, sectionID string, ids []string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM students WHERE section_id = $1 AND id = ANY($2)`
	if err := r.db.GetContext(ctx, &count, query, sectionID, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count section students: %w", err)
	}
	return count, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt, student.UpdatedAt = now, now
	const query = `INSERT INTO students (id, section_id, roll_number, full_name, email, created_at, updated_at) VALUES (:id, :section_id, :roll_number, :full_name, :email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET section_id = :section_id, roll_number = :roll_number, full_name = :full_name, email = :email, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}
