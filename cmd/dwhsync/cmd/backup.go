package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/internal/lockfile"
	"github.com/dwhsync/dwhsync/internal/output"
	"github.com/dwhsync/dwhsync/internal/store"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create and manage warehouse backups",
		Long: `Create a timestamped backup of the warehouse database.

Backups are plain SQLite files written next to the database as
<name>.bak.<timestamp>; the three most recent are kept. Creating a
backup is safe while the agent runs.

Commands:
  backup          Create a new backup
  backup list     List existing backups, newest first
  backup restore  Replace the warehouse with a backup (agent must be stopped)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackupCreate(cmd)
		},
	}

	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackupList(cmd)
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore the warehouse from a backup",
		Long: `Replace the warehouse database with a backup file.

The current database is backed up first, so a mistaken restore can be
undone. Refuses to run while an agent holds the warehouse lock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupRestore(cmd, args[0])
		},
	}
}

func runBackupCreate(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !fileExists(cfg.Database.Path) {
		return fmt.Errorf("no warehouse found at %s", cfg.Database.Path)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	path, err := st.Backup()
	if err != nil {
		return err
	}

	out.Successf("Backup created: %s", path)
	return nil
}

func runBackupList(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backups, err := store.ListBackups(cfg.Database.Path)
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		out.Status("", "No backups found")
		out.Status("💡", "Run 'dwhsync backup' to create one")
		return nil
	}

	for _, b := range backups {
		out.Statusf("", "%s (%s)", b, formatSize(getFileSize(b)))
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, backupPath string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lock := lockfile.New(cfg.Database.Path)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire warehouse lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("agent is running (lock held at %s), stop it before restoring", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	if err := store.RestoreDatabase(cfg.Database.Path, backupPath); err != nil {
		return err
	}

	out.Successf("Warehouse restored from %s", backupPath)
	out.Status("💡", "The previous database was backed up before the restore")
	return nil
}
