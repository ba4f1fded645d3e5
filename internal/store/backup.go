package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the number of database backups kept on disk.
	MaxBackups = 3

	// BackupSuffix is appended (with a timestamp) to backup file names.
	BackupSuffix = ".bak"
)

// Backup checkpoints the WAL and copies the database file to a
// timestamped sibling. Returns the backup path on success. Backups
// beyond MaxBackups are removed, oldest first.
func (s *Store) Backup() (string, error) {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("checkpointing before backup: %w", err)
	}

	timestamp := s.now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", s.path, BackupSuffix, timestamp)

	if err := copyFile(s.path, backupPath); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}

	// Best effort, the backup itself succeeded.
	_ = cleanupOldBackups(s.path)

	return backupPath, nil
}

// ListBackups returns the backups of the database at dbPath, newest
// first. It does not need the database to be open.
func ListBackups(dbPath string) ([]string, error) {
	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing backup directory: %w", err)
	}

	var backups []string
	prefix := base + BackupSuffix + "."
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	// The timestamp suffix sorts chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))

	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the
// newest.
func cleanupOldBackups(dbPath string) error {
	backups, err := ListBackups(dbPath)
	if err != nil {
		return err
	}

	if len(backups) <= MaxBackups {
		return nil
	}

	for _, backup := range backups[MaxBackups:] {
		if err := os.Remove(backup); err != nil {
			// Best effort, continue removing others.
			continue
		}
	}

	return nil
}

// RestoreDatabase replaces the database at dbPath with a backup. The
// current file, when present, is backed up first. Must not run while the
// agent holds the database open.
func RestoreDatabase(dbPath, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if _, err := os.Stat(dbPath); err == nil {
		// The marker keeps a same-second restore from overwriting the
		// backup it is about to read.
		preRestore := fmt.Sprintf("%s%s.%s.pre-restore", dbPath, BackupSuffix,
			time.Now().Format("20060102-150405"))
		if err := copyFile(dbPath, preRestore); err != nil {
			return fmt.Errorf("backing up current database before restore: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	if err := copyFile(backupPath, dbPath); err != nil {
		return fmt.Errorf("writing restored database: %w", err)
	}

	// A WAL left behind by the replaced database must not be replayed
	// onto the restored file.
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")

	return nil
}

// copyFile copies src to dst. Backups inherit the restrictive mode of
// the database file.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}
