package syncd

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/snapshot"
	"github.com/dwhsync/dwhsync/internal/store"
)

const (
	waitFor   = 5 * time.Second
	pollEvery = 10 * time.Millisecond
)

func lastTrigger(h *harness) string {
	run, found, err := h.store.LastRun(context.Background())
	if err != nil || !found {
		return ""
	}
	return run.Trigger
}

func documentStored(h *harness, path string) bool {
	_, found, err := h.store.GetDocumentByPath(context.Background(), path)
	return err == nil && found
}

func TestRun_StartupTimerAndWakeCycles(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := "/exports/0001_1.pdf"
	b := "/exports/0001_2.pdf"
	c := "/exports/0001_3.pdf"
	h.lister.setDocs(snapshot.Snapshot{a: fp(1, 100)})

	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	// Then: the startup cycle imports what is already there
	require.Eventually(t, func() bool {
		return documentStored(h, a) && lastTrigger(h) == store.TriggerStartup
	}, waitFor, pollEvery)

	// When: a new file appears and the poll timer fires
	h.lister.setDocs(snapshot.Snapshot{a: fp(1, 100), b: fp(2, 200)})
	h.clock.tick <- time.Time{}

	require.Eventually(t, func() bool {
		return documentStored(h, b) && lastTrigger(h) == store.TriggerTimer
	}, waitFor, pollEvery)

	// When: a filesystem notification wakes the loop early
	h.lister.setDocs(snapshot.Snapshot{a: fp(1, 100), b: fp(2, 200), c: fp(3, 300)})
	h.orch.Wake()

	require.Eventually(t, func() bool {
		return documentStored(h, c) && lastTrigger(h) == store.TriggerNotify
	}, waitFor, pollEvery)

	// When: the context is cancelled
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_CycleFailureKeepsLoopAlive(t *testing.T) {
	// Given: a directory that is unreadable at startup
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := "/exports/0001_1.pdf"
	h.lister.setDocsErr(errors.FilesystemError("export directory unreadable", os.ErrPermission))

	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	// The tick handoff only completes once the failed startup cycle is
	// behind us and the loop is back in its select.
	h.clock.tick <- time.Time{}

	// When: the directory recovers before the next poll
	h.lister.setDocsErr(nil)
	h.lister.setDocs(snapshot.Snapshot{path: fp(1, 100)})
	h.clock.tick <- time.Time{}

	// Then: the loop survived the failures and imports the file
	require.Eventually(t, func() bool {
		return documentStored(h, path)
	}, waitFor, pollEvery)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_RestoreFailurePropagates(t *testing.T) {
	// Given: a warehouse that cannot be read
	h := newHarness(t)
	require.NoError(t, h.store.Close())

	// When
	err := h.orch.Run(context.Background())

	// Then: the loop refuses to start
	require.Error(t, err)
}

func TestWake_CoalescesPendingRequests(t *testing.T) {
	h := newHarness(t)

	h.orch.Wake()
	h.orch.Wake()
	h.orch.Wake()

	select {
	case <-h.orch.wake:
	default:
		t.Fatal("expected a pending wake")
	}
	select {
	case <-h.orch.wake:
		t.Fatal("expected wake requests to coalesce into one")
	default:
	}
}
