// Package history provides the SQLite-backed run journal. Every verify
// and fix run can append a summary row (.taskaudit/history.db), so repeated
// audits of the same document can be compared over time. The journal is a
// log only; verification itself never reads it.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run kinds recorded in the journal.
const (
	KindVerify = "verify"
	KindFix    = "fix"
)

// Record is one journaled run summary.
type Record struct {
	RunID       string
	Kind        string
	Document    string
	GeneratedAt time.Time

	// Verify counters. Zero for fix runs.
	Tasks        int
	Verified     int
	NotVerified  int
	Manual       int
	MissingHooks int
	InvalidScope int

	// Fix counters. Zero for verify runs.
	Fixes      int
	Reviews    int
	Unresolved int
}

// DB wraps the history database connection.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// ProjectPath returns the journal path under a project root.
func ProjectPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".taskaudit", "history.db")
}

// Open opens the journal at the given path, creating parent directories
// and the schema as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the journal file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	document TEXT NOT NULL,
	generated_at DATETIME NOT NULL,
	tasks INTEGER NOT NULL DEFAULT 0,
	verified INTEGER NOT NULL DEFAULT 0,
	not_verified INTEGER NOT NULL DEFAULT 0,
	manual INTEGER NOT NULL DEFAULT 0,
	missing_hooks INTEGER NOT NULL DEFAULT 0,
	invalid_scope INTEGER NOT NULL DEFAULT 0,
	fixes INTEGER NOT NULL DEFAULT 0,
	reviews INTEGER NOT NULL DEFAULT 0,
	unresolved INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
`

// AppendRun journals one run summary.
func (db *DB) AppendRun(r Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO runs (
			run_id, kind, document, generated_at,
			tasks, verified, not_verified, manual, missing_hooks, invalid_scope,
			fixes, reviews, unresolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Kind, r.Document, r.GeneratedAt.UTC(),
		r.Tasks, r.Verified, r.NotVerified, r.Manual, r.MissingHooks, r.InvalidScope,
		r.Fixes, r.Reviews, r.Unresolved,
	)
	if err != nil {
		return fmt.Errorf("append run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns the most recent journaled runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT run_id, kind, document, generated_at,
			tasks, verified, not_verified, manual, missing_hooks, invalid_scope,
			fixes, reviews, unresolved
		FROM runs
		ORDER BY generated_at DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.RunID, &r.Kind, &r.Document, &r.GeneratedAt,
			&r.Tasks, &r.Verified, &r.NotVerified, &r.Manual, &r.MissingHooks, &r.InvalidScope,
			&r.Fixes, &r.Reviews, &r.Unresolved,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
