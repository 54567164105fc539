package flowrun

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOrphanContainers_NoOpWithoutTrackedContainer(t *testing.T) {
	// No flow.container file and no docker daemon in the test environment:
	// this must return without panicking rather than block on dockerStop.
	assert.NotPanics(t, func() {
		sweepOrphanContainers("run-1", t.TempDir())
	})
}

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	setProcessGroup(cmd)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd
}

func TestGroupAlive_TracksProcessLifetime(t *testing.T) {
	cmd := startSleeper(t)
	assert.True(t, groupAlive(cmd.Process.Pid))

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for groupAlive(cmd.Process.Pid) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, groupAlive(cmd.Process.Pid))
}

func TestStopProcessGracefully_ExitsOnSIGTERM(t *testing.T) {
	cmd := startSleeper(t)

	err := stopProcessGracefully(cmd.Process, gracefulStopTimeout)
	require.NoError(t, err)
	assert.False(t, groupAlive(cmd.Process.Pid))
}

func TestStopProcessGracefully_EscalatesToSIGKILLOnTimeout(t *testing.T) {
	// A process that ignores SIGTERM must still be gone once
	// stopProcessGracefully's deadline passes and it escalates.
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 30")
	setProcessGroup(cmd)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	err := stopProcessGracefully(cmd.Process, 500*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, groupAlive(cmd.Process.Pid))
}

func TestSignalGroup_FallsBackWhenGroupAlreadyGone(t *testing.T) {
	cmd := startSleeper(t)
	pid := cmd.Process.Pid
	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for groupAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// Signalling an already-reaped pid must not panic or hang; it should
	// report the process is gone rather than succeeding spuriously.
	err := signalGroup(pid, syscall.SIGTERM)
	assert.Error(t, err)
	assert.False(t, groupAlive(pid))
}
