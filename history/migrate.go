package history

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed migration.sql
var migrationSQL string

// Migrate applies the history schema (idempotent CREATE IF NOT EXISTS).
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}
