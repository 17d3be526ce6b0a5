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

const sectionColumns = `id, badge_id, name, semester, session, created_at, updated_at`

// SectionRepository stores class sections.
type SectionRepository struct {
	db *sqlx.DB
}

func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

var sectionSorts = map[string]string{"name": "name", "semester": "semester", "session": "session", "created_at": "created_at"}

func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	var where whereBuilder
	if filter.BadgeID != "" {
		where.add("badge_id = ?", filter.BadgeID)
	}
	if filter.Semester > 0 {
		where.add("semester = ?", filter.Semester)
	}
	if filter.Session != "" {
		where.add("session = ?", filter.Session)
	}
	if filter.Search != "" {
		where.add("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	base := `FROM sections WHERE 1=1` + where.sql()

	sections := []models.Section{}
	if err := r.db.SelectContext(ctx, &sections, `SELECT `+sectionColumns+` `+base+orderAndPage(filter.ListQuery, sectionSorts, "name", "ASC"), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	var section models.Section
	if err := r.db.GetContext(ctx, &section, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// Exists checks the (badge, name, semester, session) natural key.
func (r *SectionRepository) Exists(ctx context.Context, s *models.Section) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM sections WHERE badge_id = $1 AND LOWER(name) = LOWER($2) AND semester = $3 AND session = $4 AND id <> $5)`
	if err := r.db.GetContext(ctx, &exists, query, s.BadgeID, s.Name, s.Semester, s.Session, s.ID); err != nil {
		return false, fmt.Errorf("check section: %w", err)
	}
	return exists, nil
}

func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt, section.UpdatedAt = now, now
	const query = `INSERT INTO sections (id, badge_id, name, semester, session, created_at, updated_at) VALUES (:id, :badge_id, :name, :semester, :session, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET badge_id = :badge_id, name = :name, semester = :semester, session = :session, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, section)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return requireAffected(res)
}
