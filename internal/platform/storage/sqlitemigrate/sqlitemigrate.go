// Package sqlitemigrate applies the engine's embedded schema migrations.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

const ledgerTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Apply runs every .sql file in fsys against db, lowest name first. Applied
// files are recorded in a ledger table and skipped on later runs, so Apply is
// safe to call on every startup.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)", ledgerTable,
	)); err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}

	for _, name := range files {
		if err := applyOne(ctx, db, fsys, name); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, fsys fs.FS, name string) error {
	var applied int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ledgerTable+" WHERE name = ?", name).Scan(&applied)
	if err != nil {
		return fmt.Errorf("check ledger: %w", err)
	}
	if applied > 0 {
		return nil
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	stmt := upSection(string(content))
	if strings.TrimSpace(stmt) == "" {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		// Re-running DDL that already took effect is not a failure; sqlite
		// has no IF NOT EXISTS form for ALTER TABLE ADD COLUMN.
		if !idempotentDDL(err) {
			return fmt.Errorf("exec: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+ledgerTable+" (name, applied_at) VALUES (?, ?)",
		name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// upSection returns the statements between the Up and Down markers. Files
// without markers run whole.
func upSection(content string) string {
	if idx := strings.Index(content, upMarker); idx >= 0 {
		content = content[idx+len(upMarker):]
	}
	if idx := strings.Index(content, downMarker); idx >= 0 {
		content = content[:idx]
	}
	return content
}

func idempotentDDL(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}
