package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(uploadID int64, started time.Time) *SyncRun {
	return &SyncRun{
		UploadID:          uploadID,
		StartedAt:         started,
		FinishedAt:        started.Add(2 * time.Second),
		Trigger:           TriggerTimer,
		DocumentsUpserted: 1,
	}
}

// ====== NextUploadID ======

func TestNextUploadID_FreshDatabaseStartsAtOne(t *testing.T) {
	s := newTestStore(t)

	next, err := s.NextUploadID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestNextUploadID_AdvancesPastRecordedRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordRun(ctx, testRun(3, time.Now())))

	next, err := s.NextUploadID(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestNextUploadID_SeesUnrecordedWrites(t *testing.T) {
	// Given: rows written by a cycle that never recorded its run
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertPatient(ctx, testPatient("111"), 5)
	require.NoError(t, err)
	require.NoError(t, s.UpsertDocument(ctx, testDocument("/exports/111_1.pdf", "111", 0), 5))

	// When
	next, err := s.NextUploadID(ctx)

	// Then: the counter still moves past them
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
}

// ====== RecordRun / RecentRuns / LastRun ======

func TestRecordRun_AssignsUUIDWhenMissing(t *testing.T) {
	s := newTestStore(t)
	run := testRun(1, time.Now())

	require.NoError(t, s.RecordRun(context.Background(), run))

	require.NotEmpty(t, run.ID)
	_, err := uuid.Parse(run.ID)
	assert.NoError(t, err)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	// Given: three recorded runs
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.RecordRun(ctx, testRun(i, base.Add(time.Duration(i)*time.Minute))))
	}

	// When
	runs, err := s.RecentRuns(ctx, 10)

	// Then
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, int64(3), runs[0].UploadID)
	assert.Equal(t, int64(2), runs[1].UploadID)
	assert.Equal(t, int64(1), runs[2].UploadID)
}

func TestRecentRuns_RoundTripsFields(t *testing.T) {
	// Given: a run with every counter set
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &SyncRun{
		UploadID:          7,
		StartedAt:         started,
		FinishedAt:        started.Add(3 * time.Second),
		Trigger:           TriggerNotify,
		PatientsUpserted:  12,
		DocumentsUpserted: 4,
		DocumentsDeleted:  2,
		RowsSkipped:       1,
		Errors:            3,
	}
	require.NoError(t, s.RecordRun(ctx, in))

	// When
	out, found, err := s.LastRun(ctx)

	// Then
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.UploadID, out.UploadID)
	assert.True(t, in.StartedAt.Equal(out.StartedAt))
	assert.True(t, in.FinishedAt.Equal(out.FinishedAt))
	assert.Equal(t, TriggerNotify, out.Trigger)
	assert.Equal(t, int64(12), out.PatientsUpserted)
	assert.Equal(t, int64(4), out.DocumentsUpserted)
	assert.Equal(t, int64(2), out.DocumentsDeleted)
	assert.Equal(t, int64(1), out.RowsSkipped)
	assert.Equal(t, int64(3), out.Errors)
}

func TestLastRun_FreshDatabase(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.LastRun(context.Background())

	require.NoError(t, err)
	assert.False(t, found)
}

// ====== PruneRuns ======

func TestPruneRuns_KeepsNewest(t *testing.T) {
	// Given: five recorded runs
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.RecordRun(ctx, testRun(i, base.Add(time.Duration(i)*time.Minute))))
	}

	// When: pruning to two
	require.NoError(t, s.PruneRuns(ctx, 2))

	// Then: only the two newest remain
	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(5), runs[0].UploadID)
	assert.Equal(t, int64(4), runs[1].UploadID)
}
