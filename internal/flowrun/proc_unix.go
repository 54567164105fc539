//go:build unix

package flowrun

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the engine child in its own process group so a
// stop signal can be delivered to the whole tree it spawns (the engine
// itself forks worker subprocesses) rather than just the immediate pid.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup delivers sig to the process group rooted at pid. Falls back
// to signalling the pid alone if the group no longer exists (e.g. the
// leader already exited and the group was reaped).
func signalGroup(pid int, sig syscall.Signal) error {
	err := unix.Kill(-pid, sig)
	if err == unix.ESRCH {
		return unix.Kill(pid, sig)
	}
	return err
}

// groupAlive reports whether any process in pid's group is still alive.
func groupAlive(pid int) bool {
	return unix.Kill(-pid, 0) == nil
}
