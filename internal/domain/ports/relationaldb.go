package ports

import (
	"context"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

// Loader is the relational sink for a normalized dataset. A load replaces
// everything a previous run wrote; there is no incremental update.
type Loader interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// SeedCategories stores the category rules used to classify groups.
	SeedCategories(ctx context.Context, rules []entities.CategoryRule) error

	// Replace swaps the stored entities, groups and memberships for the dataset
	// in a single transaction.
	Replace(ctx context.Context, ds *entities.Dataset) error

	// Counts returns the number of rows per table.
	Counts(ctx context.Context) (map[string]int, error)

	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, runID string, details map[string]any) error

	// FindAuditLogByAction finds audit log entries by action type.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)
}
