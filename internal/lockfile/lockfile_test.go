package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLock_AcquiresAndCreatesLockFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dwh.db")
	lock := New(dbPath)

	acquired, err := lock.TryLock()

	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsLocked())
	_, err = os.Stat(lock.Path())
	assert.NoError(t, err)

	require.NoError(t, lock.Unlock())
	assert.False(t, lock.IsLocked())
}

func TestTryLock_SecondLockRefusedWhileHeld(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dwh.db")

	first := New(dbPath)
	acquired, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = first.Unlock() }()

	second := New(dbPath)
	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.False(t, second.IsLocked())

	require.NoError(t, first.Unlock())

	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, second.Unlock())
}

func TestNew_LockLivesNextToDatabase(t *testing.T) {
	lock := New("/var/lib/dwhsync/dwh.db")

	assert.Equal(t, "/var/lib/dwhsync/dwh.db.lock", lock.Path())
}

func TestTryLock_CreatesMissingParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "dwh.db")
	lock := New(dbPath)

	acquired, err := lock.TryLock()

	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Unlock())
}

func TestUnlock_WithoutLockIsNoop(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "dwh.db"))

	assert.NoError(t, lock.Unlock())
}

func TestUnlock_DoubleUnlockIsNoop(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "dwh.db"))

	acquired, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock())
}
