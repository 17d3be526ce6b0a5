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

const holidayColumns = `id, date, name, created_at`

// HolidayRepository stores non-teaching dates.
type HolidayRepository struct {
	db *sqlx.DB
}

func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

var holidaySorts = map[string]string{"date": "date", "name": "name"}

func (r *HolidayRepository) List(ctx context.Context, q models.ListQuery) ([]models.Holiday, int, error) {
	var where whereBuilder
	if q.Search != "" {
		where.add("LOWER(name) LIKE ?", likePattern(q.Search))
	}
	base := `FROM holidays WHERE 1=1` + where.sql()

	holidays := []models.Holiday{}
	if err := r.db.SelectContext(ctx, &holidays, `SELECT `+holidayColumns+` `+base+orderAndPage(q, holidaySorts, "date", "ASC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list holidays: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count holidays: %w", err)
	}
	return holidays, total, nil
}

// ListBetween returns holidays with from <= date <= to. A nil exec reads
// outside any transaction.
func (r *HolidayRepository) ListBetween(ctx context.Context, exec sqlx.ExtContext, from, to time.Time) ([]models.Holiday, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT ` + holidayColumns + ` FROM holidays WHERE date BETWEEN $1 AND $2 ORDER BY date`
	holidays := []models.Holiday{}
	if err := sqlx.SelectContext(ctx, exec, &holidays, query, from.Format("2006-01-02"), to.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list holidays between: %w", err)
	}
	return holidays, nil
}

func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, `SELECT `+holidayColumns+` FROM holidays WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find holiday: %w", err)
	}
	return &holiday, nil
}

func (r *HolidayRepository) ExistsByDate(ctx context.Context, date time.Time, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM holidays WHERE date = $1 AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, date.Format("2006-01-02"), excludeID); err != nil {
		return false, fmt.Errorf("check holiday date: %w", err)
	}
	return exists, nil
}

func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	holiday.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO holidays (id, date, name, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, holiday.ID, holiday.Date.Format("2006-01-02"), holiday.Name, holiday.CreatedAt); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

func (r *HolidayRepository) Update(ctx context.Context, holiday *models.Holiday) error {
	const query = `UPDATE holidays SET date = $2, name = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, holiday.ID, holiday.Date.Format("2006-01-02"), holiday.Name)
	if err != nil {
		return fmt.Errorf("update holiday: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a holiday. Nothing references holidays.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return requireAffected(res)
}
