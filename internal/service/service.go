package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type auditLogWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes best effort audit entries. A failed write is logged and
// never fails the operation that produced it.
type auditTrail struct {
	repo   auditLogWriter
	logger *zap.Logger
	source string
}

func newAuditTrail(repo auditLogWriter, logger *zap.Logger, source string) auditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return auditTrail{repo: repo, logger: logger, source: source}
}

func (a auditTrail) record(ctx context.Context, actorID, action, resource, resourceID string, oldValues, newValues interface{}) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: "system",
		UserAgent: a.source,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	entry.OldValues = marshalAudit(oldValues)
	entry.NewValues = marshalAudit(newValues)
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// lookupError maps a repository read failure to a not found or internal error.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// passThrough keeps already classified errors and wraps anything else.
func passThrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return internalError(err, message)
}

func paginationFor(q models.ListQuery, total int) *models.Pagination {
	q.Normalize()
	return &models.Pagination{Page: q.Page, PageSize: q.PageSize, TotalCount: total}
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

// IsAdmin reports whether the actor may act on every teacher's data.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
