package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const storeVersion = 1

// storeFile is the on-disk JSON document described in spec §6 "Profile
// store".
type storeFile struct {
	Version          int       `json:"version"`
	CurrentProfileID *string   `json:"current_profile_id"`
	ForcePickerOnce  bool      `json:"force_picker_once"`
	Profiles         []Profile `json:"profiles"`
}

// Store owns the on-disk registry of profiles and serializes access to it.
type Store struct {
	mu   sync.Mutex
	path string
	data storeFile
}

// Enabled mirrors original_source's profiles_enabled(): the subsystem is
// disabled entirely under BIOVAULT_DISABLE_PROFILES or when a single fixed
// test home is pinned via BIOVAULT_TEST_HOME.
func Enabled() bool {
	if envFlagTrue("BIOVAULT_DISABLE_PROFILES") {
		return false
	}
	if os.Getenv("BIOVAULT_TEST_HOME") != "" {
		return false
	}
	return true
}

func envFlagTrue(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// StorePath resolves the profile store's JSON file location, honoring
// BIOVAULT_PROFILES_PATH, then BIOVAULT_PROFILES_DIR, then the default
// ~/.bvprofiles/profiles.json.
func StorePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("BIOVAULT_PROFILES_PATH")); p != "" {
		return p, nil
	}
	if d := strings.TrimSpace(os.Getenv("BIOVAULT_PROFILES_DIR")); d != "" {
		return filepath.Join(expandTilde(d), "profiles.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".bvprofiles", "profiles.json"), nil
}

func expandTilde(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

// NewStore loads (or initializes) the store at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, data: storeFile{Version: storeVersion}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errIO("profile.Store.load", "read store file", err)
	}
	var data storeFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return errIO("profile.Store.load", "parse store file", err)
	}
	if data.Version == 0 {
		data.Version = storeVersion
	}
	s.data = data
	return nil
}

// save writes the store atomically: serialize to a temp file in the same
// directory, fsync, rename over the target.
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errIO("profile.Store.save", "create store directory", err)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errIO("profile.Store.save", "marshal store", err)
	}

	tmp, err := os.CreateTemp(dir, "profiles-*.json.tmp")
	if err != nil {
		return errIO("profile.Store.save", "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errIO("profile.Store.save", "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errIO("profile.Store.save", "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return errIO("profile.Store.save", "close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return errIO("profile.Store.save", "chmod temp file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errIO("profile.Store.save", "rename temp file over store", err)
	}
	return nil
}

func canonicalHome(home string) (string, error) {
	abs, err := filepath.Abs(home)
	if err != nil {
		return "", err
	}
	// EvalSymlinks requires the path to exist; tolerate not-yet-created homes.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func now() time.Time { return time.Now().UTC() }
