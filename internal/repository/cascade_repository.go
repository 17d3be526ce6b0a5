package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-attendance-api/pkg/database"
)

// CascadeRepository deletes an aggregate root together with everything that
// depends on it. Foreign keys are RESTRICT, so dependents are removed child
// first inside one transaction.
type CascadeRepository struct {
	db database.TxBeginner
}

func NewCascadeRepository(db database.TxBeginner) *CascadeRepository {
	return &CascadeRepository{db: db}
}

// lectureSteps deletes requests, records and lectures selected by cond.
func lectureSteps(cond string) []string {
	ids := `SELECT id FROM lectures WHERE ` + cond
	return []string{
		`DELETE FROM attendance_requests WHERE lecture_id IN (` + ids + `)`,
		`DELETE FROM attendance_records WHERE lecture_id IN (` + ids + `)`,
		`DELETE FROM lectures WHERE ` + cond,
	}
}

// teacherCourseSteps deletes teacher courses selected by cond with their
// lectures and timetable rules.
func teacherCourseSteps(cond string) []string {
	tcIDs := `SELECT id FROM teacher_courses WHERE ` + cond
	steps := lectureSteps(`teacher_course_id IN (` + tcIDs + `)`)
	return append(steps,
		`DELETE FROM timetable_rules WHERE teacher_course_id IN (`+tcIDs+`)`,
		`DELETE FROM teacher_courses WHERE `+cond,
	)
}

// sectionSteps deletes sections selected by cond with their teacher courses
// and students.
func sectionSteps(cond string) []string {
	sectionIDs := `SELECT id FROM sections WHERE ` + cond
	steps := teacherCourseSteps(`section_id IN (` + sectionIDs + `)`)
	return append(steps,
		`DELETE FROM attendance_records WHERE student_id IN (SELECT id FROM students WHERE section_id IN (`+sectionIDs+`))`,
		`DELETE FROM students WHERE section_id IN (`+sectionIDs+`)`,
		`DELETE FROM sections WHERE `+cond,
	)
}

// run executes steps with id as $1. The last step deletes the root and must
// affect a row.
func (r *CascadeRepository) run(ctx context.Context, name, id string, steps []string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i, stmt := range steps {
			res, err := tx.ExecContext(ctx, stmt, id)
			if err != nil {
				return fmt.Errorf("delete %s (step %d): %w", name, i+1, err)
			}
			if i == len(steps)-1 {
				if err := requireAffected(res); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// DeleteLecture removes a lecture with its records and requests.
func (r *CascadeRepository) DeleteLecture(ctx context.Context, id string) error {
	return r.run(ctx, "lecture", id, lectureSteps(`id = $1`))
}

// DeleteTimetableRule removes a rule and the lectures generated from it.
func (r *CascadeRepository) DeleteTimetableRule(ctx context.Context, id string) error {
	steps := append(lectureSteps(`timetable_rule_id = $1`), `DELETE FROM timetable_rules WHERE id = $1`)
	return r.run(ctx, "timetable rule", id, steps)
}

// DeleteTeacherCourse removes an assignment with its rules and every lecture,
// generated or special.
func (r *CascadeRepository) DeleteTeacherCourse(ctx context.Context, id string) error {
	return r.run(ctx, "teacher course", id, teacherCourseSteps(`id = $1`))
}

// DeleteSection removes a section, its students and its teacher courses.
func (r *CascadeRepository) DeleteSection(ctx context.Context, id string) error {
	return r.run(ctx, "section", id, sectionSteps(`id = $1`))
}

// DeleteBadge removes a badge and all of its sections.
func (r *CascadeRepository) DeleteBadge(ctx context.Context, id string) error {
	steps := append(sectionSteps(`badge_id = $1`), `DELETE FROM badges WHERE id = $1`)
	return r.run(ctx, "badge", id, steps)
}

// DeleteCourse removes a course and every assignment teaching it.
func (r *CascadeRepository) DeleteCourse(ctx context.Context, id string) error {
	steps := append(teacherCourseSteps(`course_id = $1`), `DELETE FROM courses WHERE id = $1`)
	return r.run(ctx, "course", id, steps)
}

// DeleteStudent removes a student and their marks.
func (r *CascadeRepository) DeleteStudent(ctx context.Context, id string) error {
	return r.run(ctx, "student", id, []string{
		`DELETE FROM attendance_records WHERE student_id = $1`,
		`DELETE FROM students WHERE id = $1`,
	})
}

// DeleteTeacher removes a teacher account and their assignments.
func (r *CascadeRepository) DeleteTeacher(ctx context.Context, id string) error {
	steps := append(teacherCourseSteps(`teacher_id = $1`), `DELETE FROM users WHERE id = $1 AND role = 'TEACHER'`)
	return r.run(ctx, "teacher", id, steps)
}
