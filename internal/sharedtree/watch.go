package sharedtree

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForFile polls until path exists, ctx is cancelled, or deadline elapses
// (whichever first). The writer side (another peer, replicated by the sync
// agent) is never assumed to signal synchronously, so every caller supplies
// its own deadline (spec §4.2).
//
// fsnotify is used when the directory already exists, falling back to a
// fixed poll interval when it doesn't (the sync agent may not have created
// the parent yet) or when the watch cannot be established (network
// filesystems commonly used for the synced tree do not always support
// inotify).
func WaitForFile(ctx context.Context, path string, timeout time.Duration) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}

	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	dir := parentDir(path)
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if werr := watcher.Add(dir); werr == nil {
			for {
				select {
				case <-ctx.Done():
					_, statErr := os.Stat(path)
					return statErr == nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return pollUntil(ctx, path)
					}
					if ev.Name == path {
						if _, statErr := os.Stat(path); statErr == nil {
							return true
						}
					}
				case <-watcher.Errors:
					return pollUntil(ctx, path)
				}
			}
		}
	}
	return pollUntil(ctx, path)
}

func pollUntil(ctx context.Context, path string) bool {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			_, err := os.Stat(path)
			return err == nil
		case <-ticker.C:
		}
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
