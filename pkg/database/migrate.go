package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Schema returns the embedded DDL.
func Schema() string {
	return schema
}

// Migrate applies the embedded schema. Every statement is idempotent so the
// call is safe on an already migrated database.
func Migrate(ctx context.Context, db sqlx.ExecerContext, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("running database migrations")
	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("database migration failed", zap.Error(err))
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}
