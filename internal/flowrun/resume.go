package flowrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultLockRetries = 3
	forcedLockRetries  = 6
	engineCacheDirName = ".nextflow"
)

// Resume pre-flights the engine's cache directories then re-enters Start
// with resume=true (spec §4.3 "Resume").
func (s *Supervisor) Resume(ctx context.Context, runID string, force bool) error {
	s.mu.Lock()
	run, ok := s.runs[runID]
	req, reqOK := s.reqs[runID]
	s.mu.Unlock()
	if !ok || !reqOK {
		return errNotFound("flowrun.Resume", runID)
	}
	if run.Status != StatusPaused {
		return errState("flowrun.Resume", "run is not paused")
	}

	retries := defaultLockRetries
	if force {
		retries = forcedLockRetries
	}

	// Inspect the cache before clearing locks: clearStaleLocks removes the
	// very cache/*/db/LOCK files that cacheLooksCorrupted looks for.
	corrupted, err := cacheLooksCorrupted(req.FlowRoot)
	if err != nil {
		return errIO("flowrun.Resume", "inspect engine cache", err)
	}
	if corrupted && !force {
		return errState("flowrun.Resume", ErrCacheCorruptedPrefix)
	}

	remaining, err := clearStaleLocks(req.FlowRoot, retries)
	if err != nil {
		return errIO("flowrun.Resume", "clear engine cache locks", err)
	}
	if len(remaining) > 0 {
		sample := remaining
		if len(sample) > 3 {
			sample = sample[:3]
		}
		return errState("flowrun.Resume", fmt.Sprintf("%s: %s", ErrLocksRemainPrefix, strings.Join(sample, ", ")))
	}

	if corrupted && force {
		if err := os.RemoveAll(filepath.Join(req.FlowRoot, engineCacheDirName)); err != nil {
			return errIO("flowrun.Resume", "remove corrupted engine cache", err)
		}
	}

	req.Resume = true
	_, err = s.Start(ctx, req)
	return err
}

// clearStaleLocks finds LOCK files under every .nextflow subtree of root
// and its modules, attempting up to retries removals each (including
// clearing a read-only bit, since Windows requires a rename-then-delete
// sequence that this Unix implementation approximates with a chmod+remove).
// Returns the paths that could not be cleared.
func clearStaleLocks(root string, retries int) ([]string, error) {
	locks, err := findLockFiles(root)
	if err != nil {
		return nil, err
	}

	var remaining []string
	for _, lock := range locks {
		cleared := false
		for attempt := 0; attempt < retries; attempt++ {
			os.Chmod(lock, 0644)
			if err := os.Remove(lock); err == nil || os.IsNotExist(err) {
				cleared = true
				break
			}
		}
		if !cleared {
			remaining = append(remaining, lock)
		}
	}
	return remaining, nil
}

func findLockFiles(root string) ([]string, error) {
	var locks []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // tolerate transient walk errors; not every path must resolve
		}
		if !info.IsDir() && info.Name() == "LOCK" && strings.Contains(path, engineCacheDirName) {
			locks = append(locks, path)
		}
		return nil
	})
	return locks, err
}

// cacheLooksCorrupted checks for LOCK files under cache/*/db/, which the
// engine leaves behind when it was killed mid-write to its metadata store
// (spec §4.3 "Resume").
func cacheLooksCorrupted(root string) (bool, error) {
	matches, err := filepath.Glob(filepath.Join(root, engineCacheDirName, "cache", "*", "db", "LOCK"))
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
