package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation
}

// whereBuilder accumulates AND-ed conditions with positional placeholders.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition. Each "?" in cond is replaced by the next placeholder
// bound to the same value.
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " AND " + strings.Join(w.conditions, " AND ")
}

// orderAndPage renders ORDER BY/LIMIT/OFFSET from q with a whitelist of sort columns.
func orderAndPage(q models.ListQuery, allowed map[string]string, defaultSort, defaultOrder string) string {
	q.Normalize()

	column, ok := allowed[q.SortBy]
	if !ok {
		column = allowed[defaultSort]
	}
	order := strings.ToUpper(q.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = defaultOrder
	}
	return fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", column, order, q.PageSize, q.Offset())
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
