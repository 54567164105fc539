package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestPIDFile_Create(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, "test.pid")

	t.Run("creates pid file with correct content", func(t *testing.T) {
		m := NewPIDFile(pidPath)
		defer m.Remove()

		if err := m.Create(1234); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !m.Exists() {
			t.Error("pid file does not exist after Create()")
		}

		pid, err := m.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if pid != 1234 {
			t.Errorf("Read() = %d, want 1234", pid)
		}

		info, err := os.Stat(pidPath)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if mode := info.Mode() & os.ModePerm; mode != 0600 {
			t.Errorf("pid file mode = %04o, want 0600", mode)
		}
	})

	t.Run("returns ErrFileExists on duplicate create", func(t *testing.T) {
		dup := filepath.Join(tmpDir, "duplicate.pid")
		m1 := NewPIDFile(dup)
		m2 := NewPIDFile(dup)
		defer m1.Remove()

		if err := m1.Create(1234); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}
		if err := m2.Create(5678); !errors.Is(err, ErrFileExists) {
			t.Errorf("second Create() error = %v, want ErrFileExists", err)
		}
	})

	t.Run("creates parent directory with 0700", func(t *testing.T) {
		deep := filepath.Join(tmpDir, "nested", "dir", "test.pid")
		m := NewPIDFile(deep)
		defer m.Remove()

		if err := m.Create(1234); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		info, err := os.Stat(filepath.Dir(deep))
		if err != nil {
			t.Fatalf("parent directory not created: %v", err)
		}
		if mode := info.Mode() & os.ModePerm; mode != 0700 {
			t.Errorf("parent directory mode = %04o, want 0700", mode)
		}
	})
}

func TestPIDFile_Read(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("reads a valid pid", func(t *testing.T) {
		path := filepath.Join(tmpDir, "valid.pid")
		if err := os.WriteFile(path, []byte("9999\n"), 0600); err != nil {
			t.Fatalf("write test file: %v", err)
		}
		pid, err := NewPIDFile(path).Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if pid != 9999 {
			t.Errorf("Read() = %d, want 9999", pid)
		}
	})

	t.Run("rejects non-positive or non-numeric content", func(t *testing.T) {
		cases := map[string]string{
			"non-numeric": "not-a-number\n",
			"negative":    "-123\n",
			"zero":        "0\n",
			"empty":       "",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				path := filepath.Join(tmpDir, name+".pid")
				if err := os.WriteFile(path, []byte(content), 0600); err != nil {
					t.Fatalf("write test file: %v", err)
				}
				if _, err := NewPIDFile(path).Read(); !errors.Is(err, ErrInvalidPID) {
					t.Errorf("Read() error = %v, want ErrInvalidPID", err)
				}
			})
		}
	})
}

func TestPIDFile_Remove(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "remove.pid")
	m := NewPIDFile(path)

	if err := m.Create(1234); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if m.Exists() {
		t.Error("pid file still exists after Remove()")
	}

	m2 := NewPIDFile(path)
	defer m2.Remove()
	if err := m2.Create(5678); err != nil {
		t.Errorf("Create() after Remove() failed to reacquire the lock: %v", err)
	}
}

func TestPIDFile_LockPreventsConcurrentCreate(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lock.pid")

	m1 := NewPIDFile(path)
	defer m1.Remove()
	if err := m1.Create(1111); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	if err := NewPIDFile(path).Create(2222); err == nil {
		t.Error("second Create() succeeded on an already-locked file, want error")
	}
}

func TestPIDFile_DirectorySafetyRejectsWorldWritableDir(t *testing.T) {
	tmpDir := t.TempDir()
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.Mkdir(unsafeDir, 0777); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	info, err := os.Stat(unsafeDir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&0002 == 0 {
		t.Skip("platform does not honor world-writable bit in this context")
	}

	m := NewPIDFile(filepath.Join(unsafeDir, "test.pid"))
	if err := m.Create(1234); !errors.Is(err, ErrUnsafeDirectory) {
		t.Errorf("Create() error = %v, want ErrUnsafeDirectory", err)
	}
}

func TestTryProbe(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "probe.pid")

	t.Run("false for a missing file", func(t *testing.T) {
		locked, err := TryProbe(path)
		if err != nil {
			t.Fatalf("TryProbe() error = %v", err)
		}
		if locked {
			t.Error("TryProbe() = true for a nonexistent file, want false")
		}
	})

	t.Run("true while the owner holds the lock", func(t *testing.T) {
		m := NewPIDFile(path)
		defer m.Remove()
		if err := m.Create(4321); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		locked, err := TryProbe(path)
		if err != nil {
			t.Fatalf("TryProbe() error = %v", err)
		}
		if !locked {
			t.Error("TryProbe() = false while the file is locked, want true")
		}
	})

	t.Run("false once the lock is released, and does not itself retain one", func(t *testing.T) {
		m := NewPIDFile(path)
		if err := m.Create(4321); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		m.Remove()

		if err := os.WriteFile(path, []byte("4321\n"), 0600); err != nil {
			t.Fatalf("write test file: %v", err)
		}
		locked, err := TryProbe(path)
		if err != nil {
			t.Fatalf("TryProbe() error = %v", err)
		}
		if locked {
			t.Error("TryProbe() = true for an unlocked file, want false")
		}

		f, err := os.OpenFile(path, os.O_RDWR, 0600)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			t.Errorf("expected to reacquire the lock after TryProbe released its own, got %v", err)
		}
	})
}
