package profile

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SwitchHooks lets the daemon plug in the side effects that must happen
// around a profile switch without this package depending on the sync agent
// or the storage layer directly (spec §4.1 "Switch-in-place").
type SwitchHooks struct {
	// StopSyncAgent stops the external sync agent process, if running.
	StopSyncAgent func() error
	// ReopenDatabases re-opens the desktop + biovault SQLite databases
	// rooted at the new home.
	ReopenDatabases func(home string) error
	// RefreshWindowTitle updates UI chrome; never returns an error.
	RefreshWindowTitle func(profile Profile)
}

// Registry is the live, process-wide view of the profile store plus the
// currently held home lock. One Registry exists per daemon process.
type Registry struct {
	store   *Store
	current *Profile
	lock    *HomeLock
}

// Open loads (or creates) the store at the resolved path.
func Open() (*Registry, error) {
	path, err := StorePath()
	if err != nil {
		return nil, err
	}
	store, err := NewStore(path)
	if err != nil {
		return nil, err
	}
	return &Registry{store: store}, nil
}

// BootState reports the current selection state for the UI's startup
// picker decision.
func (r *Registry) BootState() BootState {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state := BootState{
		Enabled:          Enabled(),
		CurrentProfileID: r.store.data.CurrentProfileID,
	}
	if !state.Enabled {
		return state
	}

	for _, p := range r.store.data.Profiles {
		p := p
		state.Profiles = append(state.Profiles, Summary{
			ID:                p.ID,
			Email:             p.Email,
			Home:              p.Home,
			CachedFingerprint: p.CachedFingerprint,
			IsCurrent:         r.current != nil && r.current.ID == p.ID,
			Running:           r.isRunning(p),
			LastUsedAt:        p.LastUsedAt,
		})
	}

	force := r.store.data.ForcePickerOnce
	state.ShouldShowPicker = force || len(state.Profiles) != 1 && r.current == nil
	return state
}

func (r *Registry) isRunning(p Profile) bool {
	if r.current != nil && r.current.ID == p.ID && r.lock != nil {
		return true
	}
	return IsLive(p.Home)
}

// Create registers a new profile rooted at home. Fails if home or email is
// already claimed by another profile.
func (r *Registry) Create(home string, email *string) (*Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	canon, err := canonicalHome(home)
	if err != nil {
		return nil, errIO("profile.Create", "resolve home path", err)
	}

	for _, p := range r.store.data.Profiles {
		if sameHome(p.Home, canon) {
			return nil, errHomeInUse("profile.Create", canon)
		}
		if email != nil && p.Email != nil && strings.EqualFold(*p.Email, *email) {
			return nil, errEmailInUse("profile.Create", *email)
		}
	}

	p := Profile{
		ID:        uuid.New().String(),
		Email:     email,
		Home:      canon,
		CreatedAt: now(),
	}
	r.store.data.Profiles = append(r.store.data.Profiles, p)
	if err := r.store.save(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LookupByEmail returns the profile registered to email, if any.
func (r *Registry) LookupByEmail(email string) (*Profile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range r.store.data.Profiles {
		if p.Email != nil && strings.EqualFold(*p.Email, email) {
			p := p
			return &p, nil
		}
	}
	return nil, errNotFound("profile.LookupByEmail", email)
}

// find returns a copy of the profile matching selector (an id or an email),
// without taking the store lock (caller must hold it).
func (r *Registry) find(selector string) (*Profile, error) {
	for _, p := range r.store.data.Profiles {
		if p.ID == selector || (p.Email != nil && strings.EqualFold(*p.Email, selector)) {
			p := p
			return &p, nil
		}
	}
	return nil, errNotFound("profile.find", selector)
}

// Select binds selector (id or email) as the current profile: creates the
// home if missing and acquires its lock. waitFor bounds lock-acquisition
// retries (spec §4.1, ≈8s via --wait-for-profile-lock).
func (r *Registry) Select(selector string, waitFor time.Duration) (*Profile, error) {
	r.store.mu.Lock()
	p, err := r.find(selector)
	r.store.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.Home, 0700); err != nil {
		return nil, errIO("profile.Select", "create home directory", err)
	}

	lock, err := AcquireHomeLock(p.Home, waitFor)
	if err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	for i := range r.store.data.Profiles {
		if r.store.data.Profiles[i].ID == p.ID {
			t := now()
			r.store.data.Profiles[i].LastUsedAt = &t
			p.LastUsedAt = &t
		}
	}
	r.store.data.CurrentProfileID = &p.ID
	r.store.data.ForcePickerOnce = false
	saveErr := r.store.save()
	r.store.mu.Unlock()
	if saveErr != nil {
		lock.Release()
		return nil, saveErr
	}

	r.current = p
	r.lock = lock
	os.Setenv("BIOVAULT_HOME", p.Home)
	os.Setenv("BIOVAULT_PROFILE_ID", p.ID)
	return p, nil
}

// Switch performs the switch-in-place sequence from spec §4.1: stop the
// sync agent, rewrite env vars, reopen the per-profile databases, acquire
// the new home's lock (releasing the old one), refresh UI chrome. Failure
// after the databases are reopened leaves the process state as-is; the
// caller must retry the switch rather than have it auto-roll-back.
func (r *Registry) Switch(selector string, waitFor time.Duration, hooks SwitchHooks) (*Profile, error) {
	r.store.mu.Lock()
	target, err := r.find(selector)
	r.store.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if hooks.StopSyncAgent != nil {
		if err := hooks.StopSyncAgent(); err != nil {
			return nil, errIO("profile.Switch", "stop sync agent", err)
		}
	}

	os.Setenv("BIOVAULT_HOME", target.Home)
	os.Setenv("BIOVAULT_PROFILE_ID", target.ID)

	if hooks.ReopenDatabases != nil {
		if err := hooks.ReopenDatabases(target.Home); err != nil {
			// Per spec: old databases are not reopened automatically; the
			// process is left as-is and the caller must retry.
			return nil, errIO("profile.Switch", "reopen per-profile databases", err)
		}
	}

	newLock, err := AcquireHomeLock(target.Home, waitFor)
	if err != nil {
		return nil, err
	}

	oldLock := r.lock
	r.lock = newLock
	r.current = target
	if oldLock != nil {
		oldLock.Release()
	}

	r.store.mu.Lock()
	r.store.data.CurrentProfileID = &target.ID
	saveErr := r.store.save()
	r.store.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}

	if hooks.RefreshWindowTitle != nil {
		hooks.RefreshWindowTitle(*target)
	}
	return target, nil
}

// MoveHome relocates profileID's home directory; the lock must currently be
// held for that profile. Attempts a rename first, falling back to a
// recursive copy-then-delete for cross-device moves.
func (r *Registry) MoveHome(profileID, newHome string) (*Profile, error) {
	if r.current == nil || r.current.ID != profileID || r.lock == nil {
		return nil, errAlreadyRunning("profile.MoveHome", newHome)
	}

	canon, err := filepath.Abs(newHome)
	if err != nil {
		return nil, errIO("profile.MoveHome", "resolve destination", err)
	}

	if entries, err := os.ReadDir(canon); err == nil && len(entries) > 0 {
		return nil, errDestNonEmpty("profile.MoveHome", canon)
	}

	oldHome := r.current.Home
	if err := os.Rename(oldHome, canon); err != nil {
		if err := copyRecursive(oldHome, canon); err != nil {
			return nil, errIO("profile.MoveHome", "copy home to new location", err)
		}
		if err := os.RemoveAll(oldHome); err != nil {
			return nil, errIO("profile.MoveHome", "remove old home after copy", err)
		}
	}

	r.store.mu.Lock()
	for i := range r.store.data.Profiles {
		if r.store.data.Profiles[i].ID == profileID {
			r.store.data.Profiles[i].Home = canon
		}
	}
	saveErr := r.store.save()
	r.store.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}

	r.current.Home = canon
	return r.current, nil
}

// Delete removes a profile from the registry, optionally deleting its home
// directory too. The profile must not be the one currently locked.
func (r *Registry) Delete(profileID string, deleteHome bool) error {
	if r.current != nil && r.current.ID == profileID && r.lock != nil {
		return errAlreadyRunning("profile.Delete", profileID)
	}

	r.store.mu.Lock()
	idx := -1
	var home string
	for i, p := range r.store.data.Profiles {
		if p.ID == profileID {
			idx = i
			home = p.Home
			break
		}
	}
	if idx == -1 {
		r.store.mu.Unlock()
		return errNotFound("profile.Delete", profileID)
	}
	r.store.data.Profiles = append(r.store.data.Profiles[:idx], r.store.data.Profiles[idx+1:]...)
	err := r.store.save()
	r.store.mu.Unlock()
	if err != nil {
		return err
	}

	if deleteHome {
		if err := os.RemoveAll(home); err != nil {
			return errIO("profile.Delete", "remove home directory", err)
		}
	}
	return nil
}

// Current returns the currently selected profile, if any.
func (r *Registry) Current() *Profile { return r.current }

func sameHome(a, b string) bool {
	ca, err1 := canonicalHome(a)
	cb, err2 := canonicalHome(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return ca == cb
}

func copyRecursive(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
