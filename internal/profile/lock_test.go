package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireHomeLock_Succeeds(t *testing.T) {
	home := t.TempDir()
	lock, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)
	defer lock.Release()

	assert.Equal(t, home, lock.Home())
	assert.FileExists(t, filepath.Join(home, lockFileName))
}

func TestAcquireHomeLock_SecondAcquireFailsWithoutWait(t *testing.T) {
	home := t.TempDir()
	lock, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireHomeLock(home, 0)
	require.Error(t, err)
}

func TestAcquireHomeLock_ReleaseAllowsReacquire(t *testing.T) {
	home := t.TempDir()
	lock, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	lock2, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)
	defer lock2.Release()
}

func TestAcquireHomeLock_ReapsStaleLockFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(home, 0700))

	// Simulate a crashed process: the lock file exists but nothing holds
	// its flock.
	require.NoError(t, os.WriteFile(filepath.Join(home, lockFileName), []byte("999999\n"), 0600))

	lock, err := AcquireHomeLock(home, 0)
	require.NoError(t, err, "a stale lock file must not block a fresh acquire")
	defer lock.Release()
}

func TestAcquireHomeLock_WaitForRetriesUntilReleased(t *testing.T) {
	home := t.TempDir()
	holder, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		holder.Release()
	}()

	lock, err := AcquireHomeLock(home, time.Second)
	require.NoError(t, err)
	defer lock.Release()
}

func TestIsLive(t *testing.T) {
	home := t.TempDir()
	assert.False(t, IsLive(home), "no lock file yet")

	lock, err := AcquireHomeLock(home, 0)
	require.NoError(t, err)
	assert.True(t, IsLive(home))

	require.NoError(t, lock.Release())
	assert.False(t, IsLive(home))
}

func TestRelease_NilReceiverIsNoop(t *testing.T) {
	var lock *HomeLock
	assert.NoError(t, lock.Release())
}
