package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

func TestAttendanceRequestReviewGuardsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	now := time.Now().UTC()
	reviewer := "admin-1"
	req := &models.AttendanceRequest{ID: "req-1", Status: models.RequestApproved, ReviewedAt: &now, ReviewedBy: &reviewer}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $6 AND status = 'PENDING'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Review(context.Background(), nil, req)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestExpireStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE attendance_requests SET status = 'EXPIRED', reviewed_at = $2 WHERE kind = 'EXTENSION' AND status = 'PENDING' AND requested_at < $1 RETURNING id")).
		WithArgs(cutoff, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1").AddRow("req-2"))

	ids, err := repo.ExpireStale(context.Background(), nil, cutoff, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1", "req-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestHasOpenExtension(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("kind = 'EXTENSION' AND status IN ('PENDING', 'APPROVED')")).
		WithArgs("lec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := repo.HasOpenExtension(context.Background(), nil, "lec-1")
	require.NoError(t, err)
	assert.True(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestFindByIDLocksInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_requests r WHERE r.id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	_, err = repo.FindByID(context.Background(), tx, "req-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestListPendingExcludesStaleExtensions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	cutoff := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	filter := models.AttendanceRequestFilter{Status: models.RequestPending, StaleBefore: cutoff}
	filter.Normalize()

	cond := regexp.QuoteMeta("WHERE 1=1 AND r.status = $1 AND NOT (r.kind = 'EXTENSION' AND r.requested_at < $2)")
	mock.ExpectQuery(cond).
		WithArgs(models.RequestPending, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_requests r")+".*"+cond).
		WithArgs(models.RequestPending, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestListExpiredIncludesStaleExtensions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	cutoff := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	filter := models.AttendanceRequestFilter{Status: models.RequestExpired, StaleBefore: cutoff}
	filter.Normalize()

	cond := regexp.QuoteMeta("WHERE 1=1 AND (r.status = 'EXPIRED' OR (r.kind = 'EXTENSION' AND r.status = 'PENDING' AND r.requested_at < $1))")
	mock.ExpectQuery(cond).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_requests r") + ".*" + cond).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
