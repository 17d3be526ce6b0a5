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

const badgeColumns = `id, name, description, created_at, updated_at`

// BadgeRepository stores degree programs.
type BadgeRepository struct {
	db *sqlx.DB
}

func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

var badgeSorts = map[string]string{"name": "name", "created_at": "created_at"}

func (r *BadgeRepository) List(ctx context.Context, q models.ListQuery) ([]models.Badge, int, error) {
	var where whereBuilder
	if q.Search != "" {
		where.add("LOWER(name) LIKE ?", likePattern(q.Search))
	}
	base := `FROM badges WHERE 1=1` + where.sql()

	badges := []models.Badge{}
	if err := r.db.SelectContext(ctx, &badges, `SELECT `+badgeColumns+` `+base+orderAndPage(q, badgeSorts, "name", "ASC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list badges: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count badges: %w", err)
	}
	return badges, total, nil
}

func (r *BadgeRepository) FindByID(ctx context.Context, id string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, `SELECT `+badgeColumns+` FROM badges WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find badge: %w", err)
	}
	return &badge, nil
}

// ExistsByName checks the case-insensitive natural key, ignoring excludeID.
func (r *BadgeRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM badges WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check badge name: %w", err)
	}
	return exists, nil
}

func (r *BadgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	badge.CreatedAt, badge.UpdatedAt = now, now
	const query = `INSERT INTO badges (id, name, description, created_at, updated_at) VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, badge); err != nil {
		return fmt.Errorf("create badge: %w", err)
	}
	return nil
}

func (r *BadgeRepository) Update(ctx context.Context, badge *models.Badge) error {
	badge.UpdatedAt = time.Now().UTC()
	const query = `UPDATE badges SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, badge)
	if err != nil {
		return fmt.Errorf("update badge: %w", err)
	}
	return requireAffected(res)
}
