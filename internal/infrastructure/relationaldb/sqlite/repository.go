// Package sqlite provides a SQLite implementation of the Loader interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/infrastructure/config"
	"github.com/ersonp/roster-core/internal/infrastructure/logger"
)

// ActionImport is the audit action written by every successful Replace.
const ActionImport = entities.AuditActionImport

// Repository implements ports.Loader using SQLite.
type Repository struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	repo := NewRepositoryFromDB(db)
	repo.path = cfg.Path
	return repo, nil
}

// NewRepositoryFromDB wraps an already opened database.
func NewRepositoryFromDB(db *sql.DB) *Repository {
	return &Repository{
		db:     db,
		logger: logger.ComponentLogger("sqlite"),
	}
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Category rules used to classify groups, in priority order
	CREATE TABLE IF NOT EXISTS group_categories (
		category TEXT PRIMARY KEY,
		prefixes TEXT NOT NULL,
		priority INTEGER NOT NULL,
		description TEXT
	);

	-- People from the roster, one per source row
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		title TEXT,
		email TEXT,
		phone TEXT,
		address_street TEXT,
		address_city TEXT,
		address_postal_code TEXT,
		address_country TEXT,
		address_raw TEXT,
		raw_group_text TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		newsletter INTEGER NOT NULL DEFAULT 0,
		note TEXT,
		source_row INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_entities_email ON entities(email);

	-- Group catalog
	CREATE TABLE IF NOT EXISTS "groups" (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		description TEXT,
		year TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_groups_category ON "groups"(category);

	-- Entity to group links
	CREATE TABLE IF NOT EXISTS memberships (
		entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		group_id INTEGER NOT NULL REFERENCES "groups"(id) ON DELETE CASCADE,
		assigned_at TEXT NOT NULL,
		PRIMARY KEY (entity_id, group_id)
	);
	CREATE INDEX IF NOT EXISTS idx_memberships_group ON memberships(group_id);

	-- Audit log (tracks all loads)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		run_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Databases created before groups carried a year lack the column.
	if err := r.ensureColumn(ctx, "groups", "year", "TEXT"); err != nil {
		return err
	}
	return nil
}

// ensureColumn adds a column to an existing table when it is missing.
func (r *Repository) ensureColumn(ctx context.Context, table, column, colType string) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return fmt.Errorf("inspecting table %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspecting table %s: %w", table, err)
	}
	rows.Close()

	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %s %s`, table, column, colType)); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	r.logger.Infow("schema migrated", "table", table, "column", column)
	return nil
}

// SeedCategories replaces the stored category rules with rules in one
// transaction. UNCATEGORIZED is always present.
func (r *Repository) SeedCategories(ctx context.Context, rules []entities.CategoryRule) (err error) {
	query := `
		INSERT INTO group_categories (category, prefixes, priority, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			prefixes = excluded.prefixes,
			priority = excluded.priority,
			description = excluded.description
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Errorw("rollback failed", logger.FieldError, rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM group_categories`); err != nil {
		return fmt.Errorf("clearing categories: %w", err)
	}

	all := append(rules[:len(rules):len(rules)], entities.CategoryRule{
		Category:    entities.CategoryUncategorized,
		Prefixes:    []string{},
		Description: "Groups matching no rule",
	})
	for i, rule := range all {
		prefixes, err := json.Marshal(rule.Prefixes)
		if err != nil {
			return fmt.Errorf("marshaling prefixes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, string(rule.Category), string(prefixes), i, nullString(rule.Description)); err != nil {
			return fmt.Errorf("seeding category %s: %w", rule.Category, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing categories: %w", err)
	}
	return nil
}

// Replace deletes the previous dataset and inserts ds in one transaction. Any
// failure rolls back and leaves the previous dataset in place.
func (r *Repository) Replace(ctx context.Context, ds *entities.Dataset) (err error) {
	started := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Errorw("rollback failed", logger.FieldError, rbErr)
			}
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM memberships`,
		`DELETE FROM "groups"`,
		`DELETE FROM entities`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing previous import: %w", err)
		}
	}

	if err = insertEntities(ctx, tx, ds.Entities); err != nil {
		return err
	}
	if err = insertGroups(ctx, tx, ds.Groups); err != nil {
		return err
	}
	if err = insertMemberships(ctx, tx, ds.Memberships); err != nil {
		return err
	}

	details, err := json.Marshal(map[string]any{
		"entities":    len(ds.Entities),
		"groups":      len(ds.Groups),
		"memberships": len(ds.Memberships),
		"run_at":      ds.RunAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling details: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO audit_log (action, run_id, details) VALUES (?, ?, ?)`,
		ActionImport, nullString(ds.RunID), string(details),
	); err != nil {
		return fmt.Errorf("logging import: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	r.logger.Infow("dataset loaded",
		logger.FieldRunID, ds.RunID,
		logger.FieldCount, len(ds.Entities)+len(ds.Groups)+len(ds.Memberships),
		logger.FieldDurationMS, time.Since(started).Milliseconds(),
	)
	return nil
}

func insertEntities(ctx context.Context, tx *sql.Tx, ents []entities.Entity) error {
	query := `
		INSERT INTO entities (
			id, first_name, last_name, title, email, phone,
			address_street, address_city, address_postal_code, address_country,
			address_raw, raw_group_text, active, newsletter, note, source_row
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range ents {
		e := &ents[i]
		_, err := tx.ExecContext(ctx, query,
			e.ID,
			nullString(e.FirstName),
			nullString(e.LastName),
			nullString(e.Title),
			nullString(e.Email),
			nullString(e.Phone),
			nullString(e.Address.Street),
			nullString(e.Address.City),
			nullString(e.Address.PostalCode),
			nullString(e.Address.Country),
			nullString(e.AddressRaw),
			nullString(e.RawGroupText),
			e.Active,
			e.Newsletter,
			nullString(e.Note),
			e.SourceRow,
		)
		if err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
	}
	return nil
}

func insertGroups(ctx context.Context, tx *sql.Tx, groups []entities.Group) error {
	query := `INSERT INTO "groups" (id, name, category, description, year) VALUES (?, ?, ?, ?, ?)`
	for _, g := range groups {
		if _, err := tx.ExecContext(ctx, query, g.ID, g.Name, string(g.Category), nullString(g.Description), nullString(g.Year)); err != nil {
			return fmt.Errorf("inserting group %d: %w", g.ID, err)
		}
	}
	return nil
}

func insertMemberships(ctx context.Context, tx *sql.Tx, memberships []entities.Membership) error {
	query := `INSERT INTO memberships (entity_id, group_id, assigned_at) VALUES (?, ?, ?)`
	for _, m := range memberships {
		if _, err := tx.ExecContext(ctx, query, m.EntityID, m.GroupID, m.AssignedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting membership %s/%d: %w", m.EntityID, m.GroupID, err)
		}
	}
	return nil
}

// Counts returns the number of rows per table.
func (r *Repository) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 3)
	for name, query := range map[string]string{
		"entities":    `SELECT COUNT(*) FROM entities`,
		"groups":      `SELECT COUNT(*) FROM "groups"`,
		"memberships": `SELECT COUNT(*) FROM memberships`,
	} {
		var n int
		if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, runID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO audit_log (action, run_id, details) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, nullString(runID), detailsJSON)
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLogByAction finds audit log entries by action type, newest first.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, run_id, details, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, action, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]entities.AuditEntry, 0, max(limit, 0))
	for rows.Next() {
		var entry entities.AuditEntry
		var runID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&runID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.RunID = runID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// nullString stores absent values as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
