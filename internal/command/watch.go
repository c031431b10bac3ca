package command

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch processes the input files once, then reprocesses them whenever one
// changes, until ctx is cancelled. Events are debounced so a burst of
// writes from an editor triggers a single reprocess.
func Watch(ctx context.Context, paths []string, opts Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// watch the containing directories: editors that save via
	// rename-and-replace would otherwise detach a watch on the file itself
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("adding %s to watch: %w", dir, err)
		}
	}

	run := func() {
		if err := Run(paths, opts); err != nil {
			log.Printf("%v", err)
		}
	}
	run()

	debounceEvents(ctx, 125*time.Millisecond, watcher, func(event fsnotify.Event) {
		abs, err := filepath.Abs(event.Name)
		if err != nil || !watched[abs] {
			return
		}
		log.Printf("change detected in %s, reprocessing", event.Name)
		run()
	})
	return nil
}

func debounceEvents(ctx context.Context, interval time.Duration, watcher *fsnotify.Watcher, fn func(event fsnotify.Event)) {
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	has := func(ev fsnotify.Event, op fsnotify.Op) bool {
		return ev.Op&op == op
	}

	for {
		select {
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("file watch error: %v", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !has(ev, fsnotify.Create) && !has(ev, fsnotify.Write) {
				continue
			}
			mu.Lock()
			t, ok := timers[ev.Name]
			mu.Unlock()
			if !ok {
				t = time.AfterFunc(math.MaxInt64, func() {
					fn(ev)
					mu.Lock()
					defer mu.Unlock()
					delete(timers, ev.Name)
				})
				t.Stop()

				mu.Lock()
				timers[ev.Name] = t
				mu.Unlock()
			}
			t.Reset(interval)
		case <-ctx.Done():
			return
		}
	}
}
