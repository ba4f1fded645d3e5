package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/store/migrations"
)

// Store is the single-file SQLite warehouse.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the warehouse database at path, verifies its
// integrity and applies pending migrations.
//
// A corrupt database is never deleted or rebuilt automatically. The file
// holds patient data; recovery is an operator decision.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeDBOpen, "database path is empty", nil)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeDBOpen,
			fmt.Sprintf("cannot create database directory %s", dir), err)
	}

	if err := validateIntegrity(path); err != nil {
		return nil, errors.New(errors.ErrCodeDBCorrupt,
			fmt.Sprintf("warehouse database %s failed the integrity check", path), err).
			WithDetail("path", path).
			WithSuggestion("restore a backup with 'dwhsync backup restore', or remove the file to rebuild the warehouse from the export directory")
	}

	// WAL mode lets status queries run while a sync cycle is writing;
	// busy_timeout covers the occasional overlap.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.New(errors.ErrCodeDBOpen,
			fmt.Sprintf("cannot open database %s", path), err)
	}

	// One connection, no pooling. The sync loop is the only writer and
	// SQLite serializes everything else behind it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeDBOpen, "cannot enable foreign keys", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeDBMigrate, err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// validateIntegrity runs a quick integrity check on an existing database
// file before it is opened for writing. A missing file is fine, it will
// be created.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

// migrate applies embedded migrations that are newer than the recorded
// schema version. Each migration runs in its own transaction.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return fmt.Errorf("malformed migration name %s: %w", name, err)
		}
		if version <= current {
			continue
		}

		ddl, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(ddl)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Counts summarizes warehouse contents for the status command.
type Counts struct {
	Patients          int64
	Documents         int64
	UnlinkedDocuments int64
	WatchedFiles      int64
}

// Counts returns current row counts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM dwh_patient),
			(SELECT COUNT(*) FROM dwh_document),
			(SELECT COUNT(*) FROM dwh_document WHERE patient_num IS NULL),
			(SELECT COUNT(*) FROM watched_files)
	`)
	if err := row.Scan(&c.Patients, &c.Documents, &c.UnlinkedDocuments, &c.WatchedFiles); err != nil {
		return Counts{}, errors.New(errors.ErrCodeQueryFailed, "counting warehouse rows", err)
	}
	return c, nil
}

// ==================== Helper Functions ====================

// dateLayout is the column format for date-only values such as birth
// dates and document dates.
const dateLayout = "2006-01-02"

// nullDate formats a date column value, nil for the zero time.
func nullDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

// parseDate parses a nullable date column back to time.Time.
// Returns the zero time if the value is NULL, empty or malformed.
func parseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimestamp parses an RFC3339 timestamp column.
// Returns the zero time on a malformed value.
func parseTimestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullInt64 returns nil for zero, otherwise the value. Used for the
// optional patient_num reference on documents.
func nullInt64(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
