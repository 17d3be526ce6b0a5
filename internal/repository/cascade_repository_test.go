package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCascadeDeleteLectureChildFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_requests WHERE lecture_id IN (SELECT id FROM lectures WHERE id = $1)")).
		WithArgs("lec-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE lecture_id IN (SELECT id FROM lectures WHERE id = $1)")).
		WithArgs("lec-1").WillReturnResult(sqlmock.NewResult(0, 30))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lectures WHERE id = $1")).
		WithArgs("lec-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.DeleteLecture(context.Background(), "lec-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeDeleteMissingRootRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance_records WHERE student_id = \\$1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM students WHERE id = \\$1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteStudent(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeDeleteSectionOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	mock.ExpectBegin()
	for _, prefix := range []string{
		"DELETE FROM attendance_requests",
		"DELETE FROM attendance_records WHERE lecture_id",
		"DELETE FROM lectures",
		"DELETE FROM timetable_rules",
		"DELETE FROM teacher_courses",
		"DELETE FROM attendance_records WHERE student_id",
		"DELETE FROM students",
	} {
		mock.ExpectExec(regexp.QuoteMeta(prefix)).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 3))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sections WHERE id = $1")).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.DeleteSection(context.Background(), "s-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeDeleteExecErrorRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance_requests").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.DeleteTimetableRule(context.Background(), "rule-1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
