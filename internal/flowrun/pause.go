package flowrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// gracefulStopTimeout bounds how long Pause waits before escalating to a
// forceful kill (spec §4.3 "Pause", §5 "Cancellation & timeouts").
const gracefulStopTimeout = 30 * time.Second

// Pause requests a graceful stop of runID's engine process (spec §4.3
// "Pause"). It creates the `.flow.pause` marker first so a process that
// exits mid-stop is classified "paused" rather than "failed" by
// Supervisor.supervise or the reconciler.
func (s *Supervisor) Pause(runID string) error {
	s.mu.Lock()
	run, ok := s.runs[runID]
	proc := s.procs[runID]
	s.mu.Unlock()
	if !ok {
		return errNotFound("flowrun.Pause", runID)
	}

	pauseMarker := filepath.Join(run.ResultsDir, PauseMarkerName)
	if err := os.WriteFile(pauseMarker, []byte{}, 0644); err != nil {
		return errIO("flowrun.Pause", "write pause marker", err)
	}

	if run.ContainerID != "" {
		if err := dockerStop(run.ContainerID, gracefulStopTimeout); err != nil {
			s.logger.Warn("docker stop failed during pause", "run_id", runID, "error", err)
		}
	} else if proc != nil {
		if err := stopProcessGracefully(proc, gracefulStopTimeout); err != nil {
			s.logger.Warn("process stop failed during pause", "run_id", runID, "error", err)
		}
	}

	sweepOrphanContainers(runID, run.ResultsDir)

	os.Remove(filepath.Join(run.ResultsDir, PIDFileName))

	s.mu.Lock()
	run.Status = StatusPaused
	delete(s.procs, runID)
	s.mu.Unlock()

	s.writeState(run, StatusPaused)
	if s.sink != nil {
		s.sink.RunStatus(runID, StatusPaused)
	}
	return nil
}

// stopProcessGracefully sends SIGTERM to the engine's whole process group,
// polls for exit, and escalates to SIGKILL on timeout (spec §4.3: "Poll for
// exit up to 30s; on timeout, SIGKILL" — "taskkill /T" / "/F" on Windows).
// Signalling the group, not just the leader pid, matters because the
// engine forks worker subprocesses that would otherwise survive it.
func stopProcessGracefully(proc *os.Process, timeout time.Duration) error {
	if err := signalGroup(proc.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if !groupAlive(proc.Pid) {
			return nil
		}
		<-ticker.C
	}

	if groupAlive(proc.Pid) {
		return signalGroup(proc.Pid, syscall.SIGKILL)
	}
	return nil
}

// dockerStop stops a container with the given graceful timeout, mirroring
// `docker stop -t <seconds> <name>` from spec §4.3.
func dockerStop(name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", "-t", fmt.Sprintf("%d", int(timeout.Seconds())), name)
	return cmd.Run()
}

// sweepOrphanContainers stops every container still running under the
// run id label except the one recorded in resultsDir/ContainerIDName: the
// engine may fork worker containers of its own that never get recorded
// there, and those would otherwise outlive Pause. Best-effort throughout:
// docker errors are ignored and never fatal to Pause.
func sweepOrphanContainers(runID, resultsDir string) {
	tracked := ""
	if data, err := os.ReadFile(filepath.Join(resultsDir, ContainerIDName)); err == nil {
		tracked = strings.TrimSpace(string(data))
	}

	out, err := exec.Command("docker", "ps", "-q", "--filter", "label=biovault.run_id="+runID).Output()
	if err != nil {
		return
	}
	for _, id := range strings.Fields(string(out)) {
		if id == tracked {
			continue
		}
		_ = dockerStop(id, gracefulStopTimeout)
	}
}
