package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

// AttendanceRepository stores per-student marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CountByLecture returns how many students have been marked for a lecture.
func (r *AttendanceRepository) CountByLecture(ctx context.Context, exec sqlx.ExtContext, lectureID string) (int, error) {
	var q sqlx.QueryerContext = r.db
	if exec != nil {
		q = exec
	}
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM attendance_records WHERE lecture_id = $1`, lectureID); err != nil {
		return 0, fmt.Errorf("count attendance records: %w", err)
	}
	return count, nil
}

// Upsert writes records in one statement. A second mark for the same student
// replaces the first.
func (r *AttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	var e sqlx.ExtContext = r.db
	if exec != nil {
		e = exec
	}

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*6)
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		base := i * 6
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, rec.ID, rec.LectureID, rec.StudentID, rec.Status, rec.MarkedAt, rec.MarkedBy)
	}

	query := `INSERT INTO attendance_records (id, lecture_id, student_id, status, marked_at, marked_by) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (lecture_id, student_id) DO UPDATE SET status = EXCLUDED.status, marked_at = EXCLUDED.marked_at, marked_by = EXCLUDED.marked_by`
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert attendance records: %w", err)
	}
	return nil
}

// ListSheet returns every student of sectionID with their mark for lectureID.
func (r *AttendanceRepository) ListSheet(ctx context.Context, lectureID, sectionID string) ([]models.AttendanceRow, error) {
	const query = `SELECT s.id AS student_id, s.roll_number, s.full_name, ar.id AS record_id, ar.status, ar.marked_at
FROM students s
LEFT JOIN attendance_records ar ON ar.student_id = s.id AND ar.lecture_id = $1
WHERE s.section_id = $2
ORDER BY s.roll_number`
	rows := []models.AttendanceRow{}
	if err := r.db.SelectContext(ctx, &rows, query, lectureID, sectionID); err != nil {
		return nil, fmt.Errorf("list attendance sheet: %w", err)
	}
	return rows, nil
}
