package mocks

import (
	"context"
	"time"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

// Loader is a mock implementation of ports.Loader.
type Loader struct {
	Err error

	Categories []entities.CategoryRule
	Dataset    *entities.Dataset
	Audit      []entities.AuditEntry

	EnsureSchemaCallCount int
	ReplaceCallCount      int
	Closed                bool
}

// NewLoader creates a new mock Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *Loader) EnsureSchema(_ context.Context) error {
	m.EnsureSchemaCallCount++
	return m.Err
}

// Close closes the database connection.
func (m *Loader) Close() error {
	m.Closed = true
	return nil
}

// SeedCategories stores the category rules.
func (m *Loader) SeedCategories(_ context.Context, rules []entities.CategoryRule) error {
	if m.Err != nil {
		return m.Err
	}
	m.Categories = rules
	return nil
}

// Replace keeps the dataset in memory.
func (m *Loader) Replace(_ context.Context, ds *entities.Dataset) error {
	m.ReplaceCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.Dataset = ds
	return nil
}

// Counts returns the number of rows per table.
func (m *Loader) Counts(_ context.Context) (map[string]int, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	counts := map[string]int{"entities": 0, "groups": 0, "memberships": 0}
	if m.Dataset != nil {
		counts["entities"] = len(m.Dataset.Entities)
		counts["groups"] = len(m.Dataset.Groups)
		counts["memberships"] = len(m.Dataset.Memberships)
	}
	return counts, nil
}

// LogAction logs an action to the audit log.
func (m *Loader) LogAction(_ context.Context, action string, runID string, details map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:        int64(len(m.Audit) + 1),
		Action:    action,
		RunID:     runID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// FindAuditLogByAction finds audit log entries by action type.
func (m *Loader) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Audit[i].Action == action {
			result = append(result, m.Audit[i])
		}
	}
	return result, nil
}
