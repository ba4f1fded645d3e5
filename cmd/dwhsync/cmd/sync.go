package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/internal/extract"
	"github.com/dwhsync/dwhsync/internal/lockfile"
	"github.com/dwhsync/dwhsync/internal/output"
	"github.com/dwhsync/dwhsync/internal/source"
	"github.com/dwhsync/dwhsync/internal/store"
	"github.com/dwhsync/dwhsync/internal/syncd"
)

func newSyncCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		Long: `Run a single sync cycle against the export directory and exit.

Useful for cron-driven setups and for verifying a configuration before
starting the agent. Refuses to run while an agent holds the warehouse
lock, so a cycle never races the poll loop.`,
		Example: `  # One cycle, human-readable summary
  dwhsync sync

  # Machine-readable cycle stats
  dwhsync sync --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSync(ctx, cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output cycle stats as JSON")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, cleanup, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	defer cleanup()

	lock := lockfile.New(cfg.Database.Path)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire warehouse lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("agent is running (lock held at %s), refusing concurrent sync", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	orch, err := syncd.New(syncd.Options{
		Lister: syncd.DirLister{
			Dir:         cfg.Watch.Dir,
			Extensions:  cfg.Watch.Extensions,
			Spreadsheet: cfg.Watch.Spreadsheet,
		},
		SheetReader:  source.NewReader(cfg.Spreadsheet.Sheet),
		Extractor:    extract.Default(),
		Store:        st,
		SheetPath:    cfg.SpreadsheetPath(),
		PollInterval: cfg.PollIntervalDuration(),
	})
	if err != nil {
		return err
	}

	stats, err := orch.RunOnce(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	if !statsDidWork(stats) {
		out.Status("", "No changes")
		return nil
	}

	out.Successf("Sync complete (upload %d)", stats.UploadID)
	out.Field("Documents added", strconv.Itoa(stats.Added))
	out.Field("Documents modified", strconv.Itoa(stats.Modified))
	out.Field("Documents deleted", strconv.Itoa(stats.Deleted))
	out.Fieldf("Patients upserted", "%d", stats.PatientsUpserted)
	if stats.DocumentsLinked > 0 {
		out.Fieldf("Documents linked", "%d", stats.DocumentsLinked)
	}
	if stats.RowsSkipped > 0 {
		out.Fieldf("Rows skipped", "%d", stats.RowsSkipped)
	}
	if stats.Errors > 0 {
		out.Warningf("%d file(s) failed, see logs", stats.Errors)
	}

	return nil
}

// statsDidWork mirrors Stats.DidWork for display purposes, counting a
// cycle with only errors as work so the failures stay visible.
func statsDidWork(stats syncd.Stats) bool {
	return stats.DidWork() || stats.Errors > 0
}
