package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhsync/dwhsync/internal/snapshot"
)

func snapshotOf(t *testing.T, paths ...string) snapshot.Snapshot {
	t.Helper()
	snap := snapshot.Snapshot{}
	for i, path := range paths {
		snap[path] = snapshot.Fingerprint{
			ModTime: time.Date(2026, 3, 1, 10, 0, i, 123456789, time.UTC),
			Size:    int64(100 + i),
		}
	}
	return snap
}

func TestSaveWatched_LoadWatched_RoundTrip(t *testing.T) {
	// Given: a cycle's observed state
	s := newTestStore(t)
	ctx := context.Background()
	docs := snapshotOf(t, "/exports/111_1.pdf", "/exports/222_2.docx")
	sheet := snapshotOf(t, "/exports/export_patient.xlsx")

	// When: persisting and reloading
	require.NoError(t, s.SaveWatched(ctx, docs, sheet))
	gotDocs, gotSheet, err := s.LoadWatched(ctx)

	// Then: fingerprints survive with nanosecond precision
	require.NoError(t, err)
	require.Len(t, gotDocs, 2)
	require.Len(t, gotSheet, 1)
	for path, fp := range docs {
		assert.True(t, fp.Equal(gotDocs[path]), path)
	}
	assert.True(t, sheet["/exports/export_patient.xlsx"].Equal(gotSheet["/exports/export_patient.xlsx"]))
}

func TestSaveWatched_ReplacesPreviousSnapshot(t *testing.T) {
	// Given: a persisted snapshot from an earlier cycle
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveWatched(ctx,
		snapshotOf(t, "/exports/old_1.pdf", "/exports/old_2.pdf"), nil))

	// When: the next cycle persists a different state
	require.NoError(t, s.SaveWatched(ctx, snapshotOf(t, "/exports/new_1.pdf"), nil))

	// Then: only the new state remains
	docs, sheet, err := s.LoadWatched(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, docs, "/exports/new_1.pdf")
	assert.Empty(t, sheet)
}

func TestLoadWatched_FreshDatabase(t *testing.T) {
	s := newTestStore(t)

	docs, sheet, err := s.LoadWatched(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.NotNil(t, sheet)
	assert.Empty(t, docs)
	assert.Empty(t, sheet)
}

func TestSaveWatched_AbsentSpreadsheet(t *testing.T) {
	// Given: a cycle that saw documents but no spreadsheet
	s := newTestStore(t)
	ctx := context.Background()

	// When
	require.NoError(t, s.SaveWatched(ctx, snapshotOf(t, "/exports/111_1.pdf"), snapshot.Snapshot{}))

	// Then
	docs, sheet, err := s.LoadWatched(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Empty(t, sheet)
}
