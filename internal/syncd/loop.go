package syncd

import (
	"context"

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/store"
)

// RunOnce restores the persisted snapshot and executes a single cycle.
func (o *Orchestrator) RunOnce(ctx context.Context) (Stats, error) {
	if err := o.restore(ctx); err != nil {
		return Stats{}, err
	}
	return o.RunCycle(ctx, store.TriggerManual)
}

// Run restores the persisted snapshot, executes a startup cycle, then
// loops until ctx is cancelled: one cycle per poll tick, plus an early
// cycle whenever Wake fires. Cycle failures are logged and the loop
// keeps going; the next tick is the retry.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.restore(ctx); err != nil {
		return err
	}

	o.cycle(ctx, store.TriggerStartup)

	ticker := o.clock.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			o.cycle(ctx, store.TriggerTimer)
		case <-o.wake:
			o.cycle(ctx, store.TriggerNotify)
		}
	}
}

func (o *Orchestrator) cycle(ctx context.Context, trigger string) {
	stats, err := o.RunCycle(ctx, trigger)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Error("sync cycle aborted", append([]any{"trigger", trigger}, errors.LogAttrs(err)...)...)
		return
	}
	if !stats.DidWork() {
		o.log.Debug("no changes", "trigger", trigger)
		return
	}
	o.log.Info("sync cycle complete",
		"trigger", stats.Trigger,
		"upload_id", stats.UploadID,
		"added", stats.Added,
		"modified", stats.Modified,
		"deleted", stats.Deleted,
		"patients_upserted", stats.PatientsUpserted,
		"documents_upserted", stats.DocumentsUpserted,
		"documents_deleted", stats.DocumentsDeleted,
		"documents_linked", stats.DocumentsLinked,
		"rows_skipped", stats.RowsSkipped,
		"errors", stats.Errors)
}
