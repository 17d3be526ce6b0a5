package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

// DashboardRepository computes the admin summary in a single round trip.
type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary counts pending requests, lectures in [dayStart, dayEnd) and past
// lectures without a single mark.
func (r *DashboardRepository) Summary(ctx context.Context, dayStart, dayEnd, now time.Time) (*models.DashboardSummary, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM attendance_requests WHERE kind = 'EDIT' AND status = 'PENDING') AS pending_edit_requests,
	(SELECT COUNT(*) FROM attendance_requests WHERE kind = 'EXTENSION' AND status = 'PENDING') AS pending_extension_requests,
	(SELECT COUNT(*) FROM lectures WHERE starts_at >= $1 AND starts_at < $2 AND status <> 'CANCELLED') AS lectures_today,
	(SELECT COUNT(*) FROM lectures l WHERE l.ends_at < $3 AND l.status <> 'CANCELLED'
		AND NOT EXISTS (SELECT 1 FROM attendance_records ar WHERE ar.lecture_id = l.id)) AS unmarked_past_lectures,
	(SELECT COUNT(*) FROM users WHERE role = 'TEACHER' AND active) AS active_teachers,
	(SELECT COUNT(*) FROM students) AS students`
	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query, dayStart, dayEnd, now); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &summary, nil
}
