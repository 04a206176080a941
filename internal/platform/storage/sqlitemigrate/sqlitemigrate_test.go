package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyRunsEachMigrationOnce(t *testing.T) {
	fsys := fstest.MapFS{
		"001_things.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE things (id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE things;\n")},
		"002_label.sql":  {Data: []byte("-- +migrate Up\nALTER TABLE things ADD COLUMN label TEXT NOT NULL DEFAULT '';\n-- +migrate Down\n")},
	}
	db := openTestDB(t)

	if err := Apply(context.Background(), db, fsys); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// A second run finds everything in the ledger and changes nothing.
	if err := Apply(context.Background(), db, fsys); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	var ledgered int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&ledgered); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledgered != 2 {
		t.Fatalf("ledger entries = %d, want 2", ledgered)
	}
	if _, err := db.Exec("INSERT INTO things (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("schema incomplete after apply: %v", err)
	}
}

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	got := upSection(content)
	if !strings.Contains(got, "CREATE TABLE a") {
		t.Fatalf("up section missing create statement: %q", got)
	}
	if strings.Contains(got, "DROP TABLE") {
		t.Fatalf("up section includes down statements: %q", got)
	}
	// Files without markers run whole.
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("unmarked content = %q, want unchanged", got)
	}
}
