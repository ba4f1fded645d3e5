package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwhsync/dwhsync/internal/lockfile"
	"github.com/dwhsync/dwhsync/internal/output"
	"github.com/dwhsync/dwhsync/internal/store"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show warehouse contents and last sync",
		Long: `Display information about the warehouse including:
  - Patient and document row counts
  - Documents not yet linked to a patient
  - Whether an agent currently holds the warehouse lock
  - The last recorded sync cycle
  - Database size and available backups`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// statusInfo is the JSON shape of the status command output.
type statusInfo struct {
	Database     string   `json:"database"`
	DatabaseSize int64    `json:"database_size_bytes"`
	AgentRunning bool     `json:"agent_running"`
	Patients     int64    `json:"patients"`
	Documents    int64    `json:"documents"`
	Unlinked     int64    `json:"unlinked_documents"`
	WatchedFiles int64    `json:"watched_files"`
	Backups      []string `json:"backups"`
	LastRun      *runInfo `json:"last_run,omitempty"`
}

// runInfo is the JSON shape of the last sync cycle.
type runInfo struct {
	UploadID          int64     `json:"upload_id"`
	Trigger           string    `json:"trigger"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	PatientsUpserted  int64     `json:"patients_upserted"`
	DocumentsUpserted int64     `json:"documents_upserted"`
	DocumentsDeleted  int64     `json:"documents_deleted"`
	RowsSkipped       int64     `json:"rows_skipped"`
	Errors            int64     `json:"errors"`
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !fileExists(cfg.Database.Path) {
		return fmt.Errorf("no warehouse found at %s\nRun 'dwhsync sync' or 'dwhsync watch' to create one", cfg.Database.Path)
	}

	info, err := collectStatus(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to collect status: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	renderStatus(output.New(cmd.OutOrStdout()), info)
	return nil
}

func collectStatus(ctx context.Context, dbPath string) (statusInfo, error) {
	info := statusInfo{
		Database:     dbPath,
		DatabaseSize: getFileSize(dbPath),
	}

	// A held lock means an agent is writing to this warehouse.
	lock := lockfile.New(dbPath)
	if acquired, err := lock.TryLock(); err == nil {
		info.AgentRunning = !acquired
		_ = lock.Unlock()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return info, err
	}
	defer func() { _ = st.Close() }()

	counts, err := st.Counts(ctx)
	if err != nil {
		return info, err
	}
	info.Patients = counts.Patients
	info.Documents = counts.Documents
	info.Unlinked = counts.UnlinkedDocuments
	info.WatchedFiles = counts.WatchedFiles

	if last, ok, err := st.LastRun(ctx); err == nil && ok {
		info.LastRun = &runInfo{
			UploadID:          last.UploadID,
			Trigger:           last.Trigger,
			StartedAt:         last.StartedAt,
			FinishedAt:        last.FinishedAt,
			PatientsUpserted:  last.PatientsUpserted,
			DocumentsUpserted: last.DocumentsUpserted,
			DocumentsDeleted:  last.DocumentsDeleted,
			RowsSkipped:       last.RowsSkipped,
			Errors:            last.Errors,
		}
	}

	if backups, err := store.ListBackups(dbPath); err == nil {
		info.Backups = backups
	}

	return info, nil
}

func renderStatus(out *output.Writer, info statusInfo) {
	out.Statusf("🗄️ ", "Warehouse: %s", info.Database)
	out.Field("Size", formatSize(info.DatabaseSize))
	if info.AgentRunning {
		out.Field("Agent", "running")
	} else {
		out.Field("Agent", "stopped")
	}
	out.Newline()

	out.Field("Patients", strconv.FormatInt(info.Patients, 10))
	out.Field("Documents", strconv.FormatInt(info.Documents, 10))
	out.Field("Unlinked documents", strconv.FormatInt(info.Unlinked, 10))
	out.Field("Watched files", strconv.FormatInt(info.WatchedFiles, 10))
	out.Field("Backups", strconv.Itoa(len(info.Backups)))

	out.Newline()
	if info.LastRun == nil {
		out.Status("", "No sync has run yet")
		return
	}

	lr := info.LastRun
	out.Statusf("🕑", "Last sync: upload %d (%s)", lr.UploadID, lr.Trigger)
	out.Field("Finished", lr.FinishedAt.Local().Format(time.RFC3339))
	out.Fieldf("Patients upserted", "%d", lr.PatientsUpserted)
	out.Fieldf("Documents upserted", "%d", lr.DocumentsUpserted)
	out.Fieldf("Documents deleted", "%d", lr.DocumentsDeleted)
	if lr.RowsSkipped > 0 {
		out.Fieldf("Rows skipped", "%d", lr.RowsSkipped)
	}
	if lr.Errors > 0 {
		out.Fieldf("Errors", "%d", lr.Errors)
	}
}

// getFileSize returns the size of a file in bytes.
func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
