package entities

import "time"

// Audit actions recorded by the loader.
const (
	AuditActionImport = "import"
	AuditActionDryRun = "dry-run"
)

// AuditEntry is one row of the load history. Details carry the collection sizes
// of the run.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	RunID     string         `json:"run_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Count returns the integer detail stored under key, or zero. Details decoded
// from JSON hold float64 values.
func (a AuditEntry) Count(key string) int {
	switch v := a.Details[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
