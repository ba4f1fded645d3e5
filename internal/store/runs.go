package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Trigger values recorded on sync_runs rows.
const (
	TriggerStartup = "startup"
	TriggerTimer   = "timer"
	TriggerNotify  = "notify"
	TriggerManual  = "manual"
)

// SyncRun records one sync cycle that performed work. Idle cycles are
// not recorded.
type SyncRun struct {
	ID                string
	UploadID          int64
	StartedAt         time.Time
	FinishedAt        time.Time
	Trigger           string
	PatientsUpserted  int64
	DocumentsUpserted int64
	DocumentsDeleted  int64
	RowsSkipped       int64
	Errors            int64
}

// NextUploadID returns the next free upload identifier. It scans the
// data tables as well as sync_runs, so rows written by a cycle that
// crashed before recording its run still push the counter forward.
func (s *Store) NextUploadID(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(u), 0) + 1 FROM (
			SELECT MAX(upload_id) AS u FROM sync_runs
			UNION ALL
			SELECT MAX(upload_id) FROM dwh_patient
			UNION ALL
			SELECT MAX(upload_id) FROM dwh_document
		)
	`).Scan(&next)
	if err != nil {
		return 0, errors.New(errors.ErrCodeQueryFailed, "computing next upload id", err)
	}
	return next, nil
}

// RecordRun inserts the sync_runs row for a cycle. A fresh id is
// assigned when the caller did not set one.
func (s *Store) RecordRun(ctx context.Context, run *SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, upload_id, started_at, finished_at, "trigger",
			patients_upserted, documents_upserted, documents_deleted,
			rows_skipped, errors
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.UploadID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Trigger, run.PatientsUpserted, run.DocumentsUpserted,
		run.DocumentsDeleted, run.RowsSkipped, run.Errors)
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "recording sync run", err)
	}
	return nil
}

// RecentRuns returns up to limit recorded runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upload_id, started_at, finished_at, "trigger",
		       patients_upserted, documents_upserted, documents_deleted,
		       rows_skipped, errors
		FROM sync_runs
		ORDER BY started_at DESC, upload_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeQueryFailed, "querying sync runs", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var started, finished string
		if err := rows.Scan(&run.ID, &run.UploadID, &started, &finished,
			&run.Trigger, &run.PatientsUpserted, &run.DocumentsUpserted,
			&run.DocumentsDeleted, &run.RowsSkipped, &run.Errors); err != nil {
			return nil, errors.New(errors.ErrCodeQueryFailed, "scanning sync run", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeQueryFailed, "iterating sync runs", err)
	}

	return runs, nil
}

// LastRun returns the most recent recorded run. The boolean reports
// whether any run has been recorded.
func (s *Store) LastRun(ctx context.Context) (*SyncRun, bool, error) {
	runs, err := s.RecentRuns(ctx, 1)
	if err != nil {
		return nil, false, err
	}
	if len(runs) == 0 {
		return nil, false, nil
	}
	return &runs[0], true, nil
}

// PruneRuns drops run history beyond the newest keep rows.
func (s *Store) PruneRuns(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_runs
		WHERE id NOT IN (
			SELECT id FROM sync_runs
			ORDER BY started_at DESC, upload_id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "pruning sync runs", err)
	}
	return nil
}
