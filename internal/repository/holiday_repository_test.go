package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayRepositoryListBetweenUsesTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	query := regexp.QuoteMeta("SELECT id, date, name, created_at FROM holidays WHERE date BETWEEN $1 AND $2 ORDER BY date")
	mock.ExpectBegin()
	mock.ExpectQuery(query).
		WithArgs("2025-01-01", "2025-01-08").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "name", "created_at"}).
			AddRow("holiday-1", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "Founders Day", time.Now()))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	holidays, err := repo.ListBetween(context.Background(), tx, from, to)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, holidays, 1)
	assert.Equal(t, "Founders Day", holidays[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryListBetweenWithoutTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM holidays WHERE date BETWEEN $1 AND $2")).
		WithArgs("2025-01-01", "2025-01-08").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "name", "created_at"}))

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	holidays, err := repo.ListBetween(context.Background(), nil, from, to)
	require.NoError(t, err)
	assert.Empty(t, holidays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
