// Package lifecycle provides secure PID-file and advisory-lock primitives
// shared by the profile home lock (C1) and the flow run supervisor (C3).
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var (
	// ErrFileExists is returned when creating a PID file that already exists.
	ErrFileExists = errors.New("pid file already exists")

	// ErrLocked is returned when another process holds the file lock.
	ErrLocked = errors.New("pid file is locked by another process")

	// ErrInvalidPID is returned when the file contains non-numeric data.
	ErrInvalidPID = errors.New("invalid pid in file")

	// ErrUnsafeDirectory is returned when the parent directory is world-writable.
	ErrUnsafeDirectory = errors.New("pid file directory is world-writable")
)

// PIDFile manages a single PID file with exclusive flock-based locking and
// O_EXCL creation so a concurrent process can never observe a half-written
// file or win a symlink race.
type PIDFile struct {
	path string
	file *os.File
}

// NewPIDFile returns a manager for the PID file at path. It does not touch
// the filesystem until Create or Read is called.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Create writes pid to the file while holding an exclusive, non-blocking
// lock. Returns ErrFileExists if the file is already present, and ErrLocked
// if the newly created file cannot be locked.
func (m *PIDFile) Create(pid int) error {
	dir := filepath.Dir(m.path)
	if err := verifyDirectorySafety(dir); err != nil {
		return fmt.Errorf("unsafe pid file location: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}

	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return ErrFileExists
		}
		return fmt.Errorf("create pid file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		os.Remove(m.path)
		if err == syscall.EWOULDBLOCK {
			return ErrLocked
		}
		return fmt.Errorf("lock pid file: %w", err)
	}

	if _, err := f.WriteString(fmt.Sprintf("%d\n", pid)); err != nil {
		f.Close()
		os.Remove(m.path)
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(m.path)
		return fmt.Errorf("sync pid file: %w", err)
	}

	m.file = f
	return nil
}

// Read returns the pid currently stored in the file without acquiring a lock.
func (m *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, s)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: pid must be positive, got %d", ErrInvalidPID, pid)
	}
	return pid, nil
}

// Remove releases the lock (if held by this process) and deletes the file.
func (m *PIDFile) Remove() error {
	if m.file != nil {
		syscall.Flock(int(m.file.Fd()), syscall.LOCK_UN)
		m.file.Close()
		m.file = nil
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// Exists reports whether the file is currently present on disk.
func (m *PIDFile) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// TryProbe attempts a non-blocking lock on an existing pid file without
// creating or writing it, to answer "is this home currently live" without
// disturbing ownership. Returns true if the file is currently locked by
// another process.
func TryProbe(path string) (locked bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err == syscall.EWOULDBLOCK {
			return true, nil
		}
		return false, err
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false, nil
}

// verifyDirectorySafety rejects world-writable parent directories, which
// would allow a symlink-swap attack against the pid file.
func verifyDirectorySafety(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat directory: %w", err)
	}
	if info.Mode()&0002 != 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrUnsafeDirectory, dir, info.Mode()&os.ModePerm)
	}
	return nil
}
