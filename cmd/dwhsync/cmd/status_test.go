package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhsync/dwhsync/internal/lockfile"
	"github.com/dwhsync/dwhsync/internal/store"
)

func TestStatusCmd_ErrorsWithoutWarehouse(t *testing.T) {
	// Given: a directory with no database
	isolate(t)

	// When: asking for status
	_, err := execRoot(t, "status")

	// Then: the command explains how to create one
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no warehouse found")
}

func TestStatusCmd_ShowsWarehouseSummary(t *testing.T) {
	// Given: a warehouse populated by one sync
	isolate(t)
	writeExportDocx(t, "exports", "1001_200.docx", "Compte rendu de consultation.")
	writeExportSheet(t, "exports", "1001")
	_, err := execRoot(t, "sync")
	require.NoError(t, err)

	// When: asking for status
	output, err := execRoot(t, "status")

	// Then: counts and the last sync are listed
	require.NoError(t, err)
	assert.Contains(t, output, "Warehouse: dwh.db")
	assert.Contains(t, output, "Patients:")
	assert.Contains(t, output, "Documents:")
	assert.Contains(t, output, "Last sync: upload 1 (manual)")
	assert.Contains(t, output, "stopped")
}

func TestStatusCmd_JSONOutput(t *testing.T) {
	// Given: a warehouse populated by one sync
	isolate(t)
	writeExportDocx(t, "exports", "1001_200.docx", "Compte rendu de consultation.")
	writeExportSheet(t, "exports", "1001")
	_, err := execRoot(t, "sync")
	require.NoError(t, err)

	// When: asking for JSON status
	output, err := execRoot(t, "status", "--json")

	// Then: the structure carries counts and the last run
	require.NoError(t, err)

	var info statusInfo
	require.NoError(t, json.Unmarshal([]byte(output), &info))
	assert.Equal(t, "dwh.db", info.Database)
	assert.Positive(t, info.DatabaseSize)
	assert.False(t, info.AgentRunning)
	assert.EqualValues(t, 1, info.Patients)
	assert.EqualValues(t, 1, info.Documents)
	assert.EqualValues(t, 0, info.Unlinked)
	require.NotNil(t, info.LastRun)
	assert.Equal(t, store.TriggerManual, info.LastRun.Trigger)
	assert.EqualValues(t, 1, info.LastRun.UploadID)
	assert.EqualValues(t, 1, info.LastRun.PatientsUpserted)
}

func TestStatusCmd_ReportsRunningAgent(t *testing.T) {
	// Given: a warehouse and a held agent lock
	isolate(t)
	writeExportDocx(t, "exports", "1001_200.docx", "Compte rendu de consultation.")
	writeExportSheet(t, "exports", "1001")
	_, err := execRoot(t, "sync")
	require.NoError(t, err)

	lock := lockfile.New("dwh.db")
	acquired, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = lock.Unlock() }()

	// When: asking for JSON status
	output, err := execRoot(t, "status", "--json")

	// Then: the agent is reported running
	require.NoError(t, err)

	var info statusInfo
	require.NoError(t, json.Unmarshal([]byte(output), &info))
	assert.True(t, info.AgentRunning)
}

func TestStatusCmd_NoRunRecordedYet(t *testing.T) {
	// Given: a warehouse created without any completed work
	isolate(t)
	st, err := store.Open("dwh.db")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// When: asking for status
	output, err := execRoot(t, "status")

	// Then: the absence of runs is stated, not an error
	require.NoError(t, err)
	assert.Contains(t, output, "No sync has run yet")

	counts, err := openWarehouse(t).Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Documents)
}
